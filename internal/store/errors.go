package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidShape is matched by every *ShapeError.
	ErrInvalidShape = errors.New("invalid storage shape")

	// ErrTainted is returned by Commit after a failed persist. Reload or
	// Reset the store before committing again.
	ErrTainted = errors.New("event store is tainted by a failed persist")

	// ErrEventExists is returned when an outcome reuses a recorded event id.
	ErrEventExists = errors.New("event id already recorded")

	// ErrEmptyEventID is returned when an outcome has no event id.
	ErrEmptyEventID = errors.New("event id is empty")

	// ErrMissingDestination is returned for a successful outcome without a
	// destination status.
	ErrMissingDestination = errors.New("successful outcome has no destination status")

	// ErrInvalidOutcome is returned for changes, error or data records that
	// cannot be stored: unencodable numbers or keys that collide once
	// normalized.
	ErrInvalidOutcome = errors.New("outcome cannot be stored")

	// ErrConflict is returned by subjects that detect a concurrent writer.
	// The durable document has changed since it was read; reload and recompute.
	ErrConflict = errors.New("subject was modified concurrently")
)

// ShapeError reports a persisted value that is not a valid document.
// It is fatal: callers should surface or quarantine the value, never repair it.
type ShapeError struct {
	// Raw is the offending document as read from the subject.
	Raw []byte

	// Missing lists required keys that are absent.
	Missing []string

	// Unexpected lists keys outside the four-key schema.
	Unexpected []string

	// Reason is a human-readable description.
	Reason string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	var b strings.Builder
	b.WriteString("invalid storage shape: ")
	b.WriteString(e.Reason)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing=%s)", strings.Join(e.Missing, ","))
	}
	if len(e.Unexpected) > 0 {
		fmt.Fprintf(&b, " (unexpected=%s)", strings.Join(e.Unexpected, ","))
	}
	return b.String()
}

// Is makes errors.Is(err, ErrInvalidShape) match.
func (e *ShapeError) Is(target error) bool {
	return target == ErrInvalidShape
}

// PersistError wraps a failure of the subject while persisting the document.
// The in-memory document may already hold the attempted change.
type PersistError struct {
	// Op is the store operation that persisted: "init", "commit" or "reset".
	Op string

	// Field is the subject field being written.
	Field string

	// Err is the subject's error.
	Err error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s (field=%s): %v", e.Op, e.Field, e.Err)
}

// Unwrap returns the subject's error.
func (e *PersistError) Unwrap() error {
	return e.Err
}

// IsShapeError returns true if err is or wraps a *ShapeError.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// IsPersistError returns true if err is or wraps a *PersistError.
func IsPersistError(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}
