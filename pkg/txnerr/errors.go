/*
Package txnerr defines the single error enumeration used across ledger,
replacing the exception-hierarchy pattern of the system this core was
ported from with one Kind plus an optional wrapped cause.

Every error kind in spec.md §7 has a Kind constant here. Callers compare
kinds with Is, not type assertions:

	if txnerr.Is(err, txnerr.PrepareFailed) {
	    // ...
	}

PartiallyCommitted is deliberately not retryable: once the coordinator
reports it, the session is terminal and the caller must reconcile out of
band (spec.md §7).
*/
package txnerr

import (
	"errors"
	"fmt"
)

// Kind identifies the meaning of an Error, independent of its wrapped cause.
type Kind string

const (
	InvalidState       Kind = "invalid_state"
	InvalidKey         Kind = "invalid_key"
	InvalidEntity      Kind = "invalid_entity"
	ValueTooLarge      Kind = "value_too_large"
	Unavailable        Kind = "unavailable"
	Serialization      Kind = "serialization"
	PrepareFailed      Kind = "prepare_failed"
	PartiallyCommitted Kind = "partially_committed"
	Cancelled          Kind = "cancelled"
	UnknownSavepoint   Kind = "unknown_savepoint"
)

// Error is the single error type returned by every public ledger operation.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error of the given kind with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds an Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind around an underlying cause.
func Wrap(kind Kind, msg string, cause error) error {
	if cause == nil {
		return New(kind, msg)
	}
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Is reports whether err (or anything it wraps) is a ledger Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, if it (or anything it wraps) is a
// ledger Error. The second return is false for plain errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
