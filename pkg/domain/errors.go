package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

var (
	// ErrNotFound is returned by entity stores when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a uniqueness rule (e.g. city + room) would be broken.
	ErrDuplicate = errors.New("duplicate")
	// ErrHasDependents is returned when deleting a row that other rows still reference.
	ErrHasDependents = errors.New("has dependents")
	// ErrInvalidTransition is returned when an order is not in the expected status.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// FailureKind classifies the outcome of a failed operation.
type FailureKind int

const (
	// StoreFailure is a backend error. It is the zero value so unknown errors land here.
	StoreFailure FailureKind = iota
	ValidationFailure
	NotFoundFailure
	ConflictFailure
)

func (k FailureKind) String() string {
	switch k {
	case ValidationFailure:
		return "validation"
	case NotFoundFailure:
		return "not_found"
	case ConflictFailure:
		return "conflict"
	default:
		return "store"
	}
}

// Failure is an error tagged with its kind and the operation that produced it.
type Failure struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (f *Failure) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Invalid builds a validation failure with a user-facing reason.
func Invalid(op, reason string) *Failure {
	return &Failure{Kind: ValidationFailure, Op: op, Err: errors.New(reason)}
}

// Classify maps an error onto the failure taxonomy.
func Classify(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFoundFailure
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrHasDependents), errors.Is(err, ErrInvalidTransition):
		return ConflictFailure
	default:
		return StoreFailure
	}
}
