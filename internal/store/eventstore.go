package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/dpstore/internal/ir"
)

// EventStore owns the document stored on one subject field.
//
// Reads (Status, State, FindEvent, Events, Document) never mutate the
// document and never persist. Commit and Reset are the only mutators.
//
// Not safe for concurrent use.
type EventStore struct {
	subject Subject
	field   string
	doc     ir.Document
	tainted bool

	logger  *slog.Logger
	metrics *Metrics
}

// Option configures an EventStore.
type Option func(*EventStore)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *EventStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink. Default: no-op metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *EventStore) {
		if m != nil {
			s.metrics = m.withDefaults()
		}
	}
}

// Bind reads the document from subject's field and returns a store wrapping it.
//
// An empty field is initialized to the skeleton document and persisted
// immediately. A non-empty field must decode to a valid document; otherwise
// Bind fails with a *ShapeError.
func Bind(ctx context.Context, subject Subject, field string, opts ...Option) (*EventStore, error) {
	if subject == nil {
		return nil, errors.New("bind: subject is nil")
	}
	if field == "" {
		return nil, errors.New("bind: field name is empty")
	}

	s := &EventStore{
		subject: subject,
		field:   field,
		logger:  slog.Default(),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload discards the in-memory document and reads it again from the
// subject. Use it after a failed persist or a conflict. On failure the
// store is tainted.
func (s *EventStore) Reload(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		s.tainted = true
		return err
	}
	return nil
}

func (s *EventStore) load(ctx context.Context) error {
	raw, err := s.subject.Field(ctx, s.field)
	if err != nil {
		return fmt.Errorf("read field %q: %w", s.field, err)
	}

	if IsEmptyDocument(raw) {
		s.logger.Debug("initializing empty document", "field", s.field)
		s.doc = ir.NewDocument()
		if err := s.persist(ctx, "init"); err != nil {
			return err
		}
		s.tainted = false
		return nil
	}

	doc, err := DecodeDocument(raw)
	if err != nil {
		s.metrics.ShapeErrors.Inc()
		s.logger.Error("invalid document shape", "field", s.field, "error", err)
		return err
	}

	s.doc = doc
	s.tainted = false
	s.logger.Debug("document loaded",
		"field", s.field,
		"events", doc.Events.Len(),
	)
	return nil
}

// Reset replaces the document with the skeleton and persists it.
// A successful Reset clears the tainted flag.
func (s *EventStore) Reset(ctx context.Context) error {
	s.doc = ir.NewDocument()
	if err := s.persist(ctx, "reset"); err != nil {
		return err
	}
	s.tainted = false
	s.metrics.Resets.Inc()
	s.logger.Debug("document reset", "field", s.field)
	return nil
}

// Status returns the current status; ok is false while it is null.
func (s *EventStore) Status() (status string, ok bool) {
	return s.doc.StatusValue()
}

// State returns a copy of the accumulated state.
func (s *EventStore) State() ir.IRObject {
	return s.doc.State.Clone()
}

// Commit folds outcome into the document and persists it.
//
// The update is applied in this order, then persisted once:
//  1. status := outcome.Destination, only when outcome.Success
//  2. non-empty outcome.Changes are merged into state
//  3. errors[id] := outcome.Error ({} when there is none)
//  4. events[id] := outcome.Data ({} when there is none)
//
// Event ids, strings and object keys are stored in their normalized form
// (see ir.NormalizeString), the same form the encoding writes. Invalid
// outcomes are rejected before anything is mutated. When the
// subject fails to persist, Commit returns a *PersistError, the in-memory
// document keeps the change and the store becomes tainted.
func (s *EventStore) Commit(ctx context.Context, outcome ir.Outcome) error {
	outcome, err := s.checkOutcome(outcome)
	if err != nil {
		s.metrics.CommitFailures.Inc()
		return err
	}

	if outcome.Success {
		dest := outcome.Destination
		s.doc.Status = &dest
	}
	if len(outcome.Changes) > 0 {
		s.doc.State.Merge(outcome.Changes)
	}
	s.doc.Errors.Append(outcome.EventID, outcome.Error.Clone())
	s.doc.Events.Append(outcome.EventID, outcome.Data.Clone())

	if err := s.persist(ctx, "commit"); err != nil {
		s.metrics.CommitFailures.Inc()
		return err
	}

	s.metrics.Commits.Inc()
	s.logger.Debug("outcome committed",
		"field", s.field,
		"event_id", outcome.EventID,
		"success", outcome.Success,
		"destination", outcome.Destination,
		"changes", len(outcome.Changes),
	)
	return nil
}

// checkOutcome validates outcome and returns its normalized form.
func (s *EventStore) checkOutcome(outcome ir.Outcome) (ir.Outcome, error) {
	if s.tainted {
		return outcome, ErrTainted
	}
	if outcome.EventID == "" {
		return outcome, ErrEmptyEventID
	}
	outcome.EventID = ir.NormalizeString(outcome.EventID)
	outcome.Destination = ir.NormalizeString(outcome.Destination)

	if s.doc.Events.Has(outcome.EventID) || s.doc.Errors.Has(outcome.EventID) {
		return outcome, fmt.Errorf("%w: %q", ErrEventExists, outcome.EventID)
	}
	if outcome.Success && outcome.Destination == "" {
		return outcome, ErrMissingDestination
	}

	parts := []struct {
		name string
		obj  *ir.IRObject
	}{
		{"changes", &outcome.Changes},
		{"error", &outcome.Error},
		{"data", &outcome.Data},
	}
	for _, p := range parts {
		normalized, err := ir.NormalizeObject(*p.obj)
		if err != nil {
			return outcome, fmt.Errorf("%w: %s: %w", ErrInvalidOutcome, p.name, err)
		}
		if _, err := ir.MarshalCanonical(normalized); err != nil {
			return outcome, fmt.Errorf("%w: %s: %w", ErrInvalidOutcome, p.name, err)
		}
		*p.obj = normalized
	}
	return outcome, nil
}

// FindEvent returns the event and error records of a committed attempt.
// ok is false when id was never committed.
func (s *EventStore) FindEvent(id string) (found ir.FoundEvent, ok bool) {
	id = ir.NormalizeString(id)
	data, ok := s.doc.Events.Get(id)
	if !ok {
		return ir.FoundEvent{}, false
	}
	errRec, _ := s.doc.Errors.Get(id)
	return ir.FoundEvent{
		ID:    id,
		Data:  data.Clone(),
		Error: errRec.Clone(),
	}, true
}

// Events returns the committed event ids in commit order.
func (s *EventStore) Events() []string {
	return s.doc.Events.IDs()
}

// Document returns a deep copy of the in-memory document.
func (s *EventStore) Document() ir.Document {
	return s.doc.Clone()
}

// Field returns the subject field the store is bound to.
func (s *EventStore) Field() string {
	return s.field
}

// Tainted reports whether a persist failed since the last successful load
// or reset. A tainted store's in-memory document may be ahead of storage.
func (s *EventStore) Tainted() bool {
	return s.tainted
}

// persist writes the whole document through the subject.
func (s *EventStore) persist(ctx context.Context, op string) error {
	data, err := EncodeDocument(s.doc)
	if err != nil {
		s.tainted = true
		return fmt.Errorf("%s: %w", op, err)
	}

	timer := s.metrics.PersistDuration()
	defer timer.ObserveDuration()

	if err := s.subject.SetField(s.field, data); err != nil {
		return s.persistFailed(op, err)
	}
	if err := s.subject.Save(ctx); err != nil {
		return s.persistFailed(op, err)
	}
	return nil
}

func (s *EventStore) persistFailed(op string, err error) error {
	s.tainted = true
	s.metrics.PersistFailures.Inc()
	s.logger.Warn("persist failed",
		"op", op,
		"field", s.field,
		"error", err,
	)
	return &PersistError{Op: op, Field: s.field, Err: err}
}
