package core

import "time"

// MutationState is a step of a mutation's lifecycle:
// Idle -> Submitting -> Succeeded -> Refreshing -> Settled, or
// Submitting -> Failed -> Idle.
type MutationState string

const (
	StateIdle       MutationState = "idle"
	StateSubmitting MutationState = "submitting"
	StateSucceeded  MutationState = "succeeded"
	StateRefreshing MutationState = "refreshing"
	StateSettled    MutationState = "settled"
	StateFailed     MutationState = "failed"
)

// Transition records a mutation entering a state.
type Transition struct {
	Action string
	Roll   string
	State  MutationState
	Detail string
	At     time.Time
}

var allowedTransitions = map[MutationState][]MutationState{
	StateIdle:       {StateSubmitting, StateFailed},
	StateSubmitting: {StateSucceeded, StateFailed},
	StateSucceeded:  {StateRefreshing},
	StateRefreshing: {StateSettled},
	StateFailed:     {StateIdle},
	StateSettled:    {StateIdle},
}

// CanTransition reports whether a mutation may move from one state to another.
func CanTransition(from, to MutationState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
