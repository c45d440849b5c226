package cache

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"feedesk/internal/core"
)

// Ticket identifies a fetch. Tickets are issued in dispatch order, so a
// larger ticket always belongs to a fetch that started later.
type Ticket uint64

// Snapshot is one immutable view of the student register.
type Snapshot struct {
	Students   []core.Student
	Generation Ticket
	FetchedAt  time.Time
}

type statsSnapshot struct {
	stats      core.DashboardStats
	generation Ticket
	fetchedAt  time.Time
}

// Ledger holds the last fetched student register and dashboard stats.
// Snapshots are swapped whole; a reader sees either the old or the new one.
type Ledger struct {
	current atomic.Pointer[Snapshot]
	stats   atomic.Pointer[statsSnapshot]
	seq     atomic.Uint64

	// mu serializes writers so the generation check and the swap are one step.
	mu  sync.Mutex
	now func() time.Time
}

func NewLedger() *Ledger {
	l := &Ledger{now: time.Now}
	l.current.Store(&Snapshot{})
	l.stats.Store(&statsSnapshot{})
	return l
}

// Begin issues a ticket for a fetch about to be dispatched.
func (l *Ledger) Begin() Ticket {
	return Ticket(l.seq.Add(1))
}

// Replace installs students unconditionally under a fresh ticket.
func (l *Ledger) Replace(students []core.Student) {
	l.Apply(l.Begin(), students)
}

// Apply installs students if t is newer than the ticket behind the current
// snapshot. It reports whether the snapshot was replaced; results of fetches
// overtaken by a later one are dropped.
func (l *Ledger) Apply(t Ticket, students []core.Student) bool {
	next := &Snapshot{
		Students:   append([]core.Student(nil), students...),
		Generation: t,
		FetchedAt:  l.now(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if t <= l.current.Load().Generation {
		return false
	}
	l.current.Store(next)
	return true
}

// ApplyStats installs dashboard stats under the same rule as Apply.
func (l *Ledger) ApplyStats(t Ticket, stats core.DashboardStats) bool {
	next := &statsSnapshot{stats: stats, generation: t, fetchedAt: l.now()}
	l.mu.Lock()
	defer l.mu.Unlock()
	if t <= l.stats.Load().generation {
		return false
	}
	l.stats.Store(next)
	return true
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (l *Ledger) Snapshot() *Snapshot {
	return l.current.Load()
}

// Get returns a copy of the current student list.
func (l *Ledger) Get() []core.Student {
	return append([]core.Student(nil), l.current.Load().Students...)
}

// Stats returns the last applied dashboard stats and whether any were applied.
func (l *Ledger) Stats() (core.DashboardStats, bool) {
	s := l.stats.Load()
	return s.stats, s.generation > 0
}

// Generation is the ticket of the fetch behind the current snapshot.
func (l *Ledger) Generation() Ticket {
	return l.current.Load().Generation
}

// Loaded reports whether a snapshot was ever applied.
func (l *Ledger) Loaded() bool {
	return l.Generation() > 0
}

// Lookup finds a student by roll in the current snapshot.
func (l *Ledger) Lookup(roll string) (core.Student, bool) {
	for _, s := range l.current.Load().Students {
		if core.SameRoll(s.Roll, roll) {
			return s, true
		}
	}
	return core.Student{}, false
}

// Predicate selects students.
type Predicate func(core.Student) bool

// Filter returns the students of the current snapshot matching pred.
func (l *Ledger) Filter(pred Predicate) []core.Student {
	var out []core.Student
	for _, s := range l.current.Load().Students {
		if pred == nil || pred(s) {
			out = append(out, s)
		}
	}
	return out
}

// ByNameOrRoll matches a case-insensitive substring of name or roll. The
// term is used as typed; only the empty term matches everyone.
func ByNameOrRoll(term string) Predicate {
	term = strings.ToLower(term)
	return func(s core.Student) bool {
		if term == "" {
			return true
		}
		return strings.Contains(strings.ToLower(s.Name), term) ||
			strings.Contains(strings.ToLower(s.Roll), term)
	}
}

// ByClass matches the class exactly. An empty class matches everyone.
func ByClass(class string) Predicate {
	return func(s core.Student) bool {
		return class == "" || s.Class == class
	}
}

// All combines predicates with a logical and.
func All(preds ...Predicate) Predicate {
	return func(s core.Student) bool {
		for _, p := range preds {
			if p != nil && !p(s) {
				return false
			}
		}
		return true
	}
}
