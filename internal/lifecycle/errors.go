package lifecycle

import (
	"errors"
	"fmt"
)

// Kind classifies lifecycle failures.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidTransition
	InvalidState
	Unauthorized
	Conflict
	BudgetExhausted
	PersistenceTimeout
	ValidationFailure
	NotFound
)

func (k Kind) String() string {
	switch k {
	case InvalidTransition:
		return "invalid_transition"
	case InvalidState:
		return "invalid_state"
	case Unauthorized:
		return "unauthorized"
	case Conflict:
		return "conflict"
	case BudgetExhausted:
		return "budget_exhausted"
	case PersistenceTimeout:
		return "persistence_timeout"
	case ValidationFailure:
		return "validation_failure"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the lifecycle engine.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind and op to an underlying error.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the caller should retry with backoff.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case Conflict, PersistenceTimeout:
		return true
	}
	return false
}
