package ir

import "time"

// TimeFormat is the wire format of every timestamp in event and error records.
const TimeFormat = time.RFC3339Nano

// Event record keys.
const (
	EventTransition    = "transition"
	EventArgs          = "args"
	EventChanges       = "changes"
	EventCreatedAt     = "created_at"
	EventUpdatedAt     = "updated_at"
	EventAttemptsCount = "attempts_count"
)

// Error record keys.
const (
	ErrorKind      = "error"
	ErrorMessage   = "error_message"
	ErrorCreatedAt = "created_at"
)

// Outcome is the result of one transition attempt, ready to be committed.
type Outcome struct {
	// EventID must be fresh: the store refuses ids it has already recorded.
	EventID string

	// Success marks the attempt as successful; only then Destination is applied.
	Success     bool
	Destination string

	// Changes are merged into the document state on success or failure.
	Changes IRObject

	// Error is the error record; nil or empty when the attempt did not fail.
	Error IRObject

	// Data is the event record describing the attempt.
	Data IRObject
}

// EventData is the typed form of an event record.
type EventData struct {
	Transition    string
	Args          IRValue
	Changes       IRObject
	CreatedAt     time.Time
	UpdatedAt     time.Time
	AttemptsCount int64
}

// Object returns the wire form of e.
func (e EventData) Object() IRObject {
	args := e.Args
	if args == nil {
		args = IRObject{}
	}
	changes := e.Changes
	if changes == nil {
		changes = IRObject{}
	}
	return IRObject{
		EventTransition:    IRString(e.Transition),
		EventArgs:          CloneValue(args),
		EventChanges:       changes.Clone(),
		EventCreatedAt:     IRString(e.CreatedAt.UTC().Format(TimeFormat)),
		EventUpdatedAt:     IRString(e.UpdatedAt.UTC().Format(TimeFormat)),
		EventAttemptsCount: IRInt(e.AttemptsCount),
	}
}

// ErrorData is the typed form of an error record.
type ErrorData struct {
	Kind      string
	Message   string
	CreatedAt time.Time
}

// Object returns the wire form of e.
func (e ErrorData) Object() IRObject {
	return IRObject{
		ErrorKind:      IRString(e.Kind),
		ErrorMessage:   IRString(e.Message),
		ErrorCreatedAt: IRString(e.CreatedAt.UTC().Format(TimeFormat)),
	}
}

// FoundEvent is the read-only view of one committed attempt: its event
// record combined with its error record.
type FoundEvent struct {
	ID    string
	Data  IRObject
	Error IRObject
}

// Failed reports whether the attempt recorded an error.
func (f FoundEvent) Failed() bool {
	return len(f.Error) > 0
}

// Transition returns the transition name recorded in the event data.
func (f FoundEvent) Transition() string {
	return f.Data.StringAt(EventTransition)
}

// ErrorKind returns the recorded error kind, or "" for a clean attempt.
func (f FoundEvent) ErrorKind() string {
	return f.Error.StringAt(ErrorKind)
}

// ErrorMessage returns the recorded error message.
func (f FoundEvent) ErrorMessage() string {
	return f.Error.StringAt(ErrorMessage)
}
