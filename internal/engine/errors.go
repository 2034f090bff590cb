package engine

import (
	"errors"
	"fmt"
	"strings"
)

// KindPanic is recorded when a transition panics.
const KindPanic = "Panic"

// KindMissingDestination is recorded when a transition reports success
// without naming a destination status.
const KindMissingDestination = "MissingDestination"

// TransitionError is an error a transition returns to control how the
// failure is recorded.
type TransitionError struct {
	// Kind is written as the error record's "error" value.
	Kind string

	// Message is written as "error_message". Defaults to Err's message.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		return e.Kind
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause.
func (e *TransitionError) Unwrap() error {
	return e.Err
}

// NewTransitionError creates a TransitionError with a formatted message.
func NewTransitionError(kind, format string, args ...any) *TransitionError {
	return &TransitionError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsTransitionError returns true if err is or wraps a *TransitionError.
func IsTransitionError(err error) bool {
	var te *TransitionError
	return errors.As(err, &te)
}

// ErrorKind names the kind of a transition failure.
//
// Resolution order: the Kind of a *TransitionError in the chain, then a
// non-empty Kind() string method in the chain, then the Go type name of err.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var te *TransitionError
	if errors.As(err, &te) && te.Kind != "" {
		return te.Kind
	}
	var kinded interface{ Kind() string }
	if errors.As(err, &kinded) {
		if kind := kinded.Kind(); kind != "" {
			return kind
		}
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// ErrorMessage returns the message recorded for a transition failure.
func ErrorMessage(err error) string {
	var te *TransitionError
	if errors.As(err, &te) {
		if te.Message != "" {
			return te.Message
		}
		if te.Err != nil {
			return te.Err.Error()
		}
		return ""
	}
	return err.Error()
}
