package core

import (
	"errors"
	"fmt"
)

var (
	ErrTransport      = errors.New("transport error")
	ErrRemoteLedger   = errors.New("remote ledger error")
	ErrUnknownStudent = errors.New("unknown student")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrValidation     = errors.New("validation failed")
	ErrMissingField   = errors.New("missing field")
)

// TransportError covers unreachable endpoints, non-2xx responses and bodies
// that cannot be decoded.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RemoteLedgerError is a business error reported by the ledger through the
// "error" field of a response.
type RemoteLedgerError struct {
	Action  string
	Message string
}

func (e *RemoteLedgerError) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func (e *RemoteLedgerError) Is(target error) bool { return target == ErrRemoteLedger }

type UnknownStudentError struct {
	Roll string
}

func (e *UnknownStudentError) Error() string {
	return fmt.Sprintf("student with roll %q not found", e.Roll)
}

func (e *UnknownStudentError) Is(target error) bool { return target == ErrUnknownStudent }

type InvalidAmountError struct {
	Amount string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: must be a positive number", e.Amount)
}

func (e *InvalidAmountError) Is(target error) bool { return target == ErrInvalidAmount }

// ValidationError reports a form field that failed a client-side check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// MissingFieldError is returned by the normalizer when an identifying field
// is absent from a backend record.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record has no %s", e.Field)
}

func (e *MissingFieldError) Is(target error) bool { return target == ErrMissingField }
