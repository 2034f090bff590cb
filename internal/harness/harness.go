package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/dpstore/internal/engine"
	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
	"github.com/roach88/dpstore/internal/subject/memory"
	"github.com/roach88/dpstore/internal/testutil"
)

// ErrorNames maps the error names used in scenarios to a predicate.
var ErrorNames = map[string]func(error) bool{
	"invalid_shape":       func(err error) bool { return errors.Is(err, store.ErrInvalidShape) },
	"persist":             store.IsPersistError,
	"tainted":             func(err error) bool { return errors.Is(err, store.ErrTainted) },
	"event_exists":        func(err error) bool { return errors.Is(err, store.ErrEventExists) },
	"empty_event_id":      func(err error) bool { return errors.Is(err, store.ErrEmptyEventID) },
	"missing_destination": func(err error) bool { return errors.Is(err, store.ErrMissingDestination) },
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion matched.
	Pass bool `json:"pass"`

	// Errors lists every mismatch.
	Errors []string `json:"errors,omitempty"`

	// Document is the durable value of the field after the run.
	Document []byte `json:"-"`

	// Saves is the number of successful subject saves.
	Saves int `json:"saves"`
}

// AddError records a mismatch and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness runs one scenario. It holds the per-run deterministic helpers.
type Harness struct {
	subject *memory.Subject
	store   *store.EventStore
	runner  *engine.Runner
	logger  *slog.Logger
}

// Run executes a scenario against a fresh in-memory subject.
//
// Mismatches are reported in the result. The returned error is reserved
// for scenarios that cannot be executed at all (for example values that
// cannot be converted).
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	result := &Result{Pass: true}

	subj := memory.New()
	if scenario.Initial != "" {
		subj.Put(scenario.field(), []byte(scenario.Initial))
	}

	es, err := store.Bind(ctx, subj, scenario.field(), store.WithLogger(logger))
	if scenario.BindError != "" {
		if err == nil {
			result.AddError("bind: expected %s error, got none", scenario.BindError)
		} else if !ErrorNames[scenario.BindError](err) {
			result.AddError("bind: expected %s error, got %v", scenario.BindError, err)
		}
		return finish(ctx, scenario, subj, result)
	}
	if err != nil {
		result.AddError("bind: %v", err)
		return finish(ctx, scenario, subj, result)
	}

	h := &Harness{
		subject: subj,
		store:   es,
		runner: engine.NewRunner(
			engine.WithClock(testutil.NewStepClock()),
			engine.WithLogger(logger),
		),
		logger: logger,
	}

	for i, step := range scenario.Steps {
		stepErr, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		checkStepError(result, i, step.ExpectError, stepErr)
	}

	for _, msg := range EvaluateAssertions(es, scenario.Assertions) {
		result.AddError("%s", msg)
	}

	return finish(ctx, scenario, subj, result)
}

func finish(ctx context.Context, scenario *Scenario, subj *memory.Subject, result *Result) (*Result, error) {
	doc, err := subj.Field(ctx, scenario.field())
	if err != nil {
		return nil, err
	}
	result.Document = doc
	result.Saves = subj.Saves()
	return result, nil
}

func checkStepError(result *Result, i int, expected string, got error) {
	switch {
	case expected == "" && got != nil:
		result.AddError("step %d: unexpected error: %v", i, got)
	case expected != "" && got == nil:
		result.AddError("step %d: expected %s error, got none", i, expected)
	case expected != "" && !ErrorNames[expected](got):
		result.AddError("step %d: expected %s error, got %v", i, expected, got)
	}
}

// executeStep runs one step. The first return value is the step's own
// error, to be compared with ExpectError; the second means the step could
// not be built.
func (h *Harness) executeStep(ctx context.Context, step Step) (stepErr, err error) {
	switch {
	case step.Commit != nil:
		outcome, err := commitOutcome(step.Commit)
		if err != nil {
			return nil, err
		}
		return h.store.Commit(ctx, outcome), nil

	case step.Fire != nil:
		call, err := fireCall(step.Fire)
		if err != nil {
			return nil, err
		}
		_, err = h.runner.Fire(ctx, h.store, call)
		return err, nil

	case step.Reset:
		return h.store.Reset(ctx), nil

	case step.Reload:
		return h.store.Reload(ctx), nil

	case step.FailSaves != nil:
		if *step.FailSaves == "" {
			h.subject.FailSaves(nil)
		} else {
			h.subject.FailSaves(errors.New(*step.FailSaves))
		}
		return nil, nil
	}
	return nil, fmt.Errorf("empty step")
}

func commitOutcome(c *CommitStep) (ir.Outcome, error) {
	changes, err := ir.ObjectFromMap(c.Changes)
	if err != nil {
		return ir.Outcome{}, fmt.Errorf("commit changes: %w", err)
	}
	errRec, err := ir.ObjectFromMap(c.Error)
	if err != nil {
		return ir.Outcome{}, fmt.Errorf("commit error: %w", err)
	}
	data, err := ir.ObjectFromMap(c.Data)
	if err != nil {
		return ir.Outcome{}, fmt.Errorf("commit data: %w", err)
	}
	return ir.Outcome{
		EventID:     c.EventID,
		Success:     c.Success,
		Destination: c.Destination,
		Changes:     changes,
		Error:       errRec,
		Data:        data,
	}, nil
}

func fireCall(f *FireStep) (engine.Call, error) {
	var args ir.IRValue
	if f.Args != nil {
		v, err := ir.FromAny(f.Args)
		if err != nil {
			return engine.Call{}, fmt.Errorf("fire args: %w", err)
		}
		args = v
	}
	changes, err := ir.ObjectFromMap(f.Changes)
	if err != nil {
		return engine.Call{}, fmt.Errorf("fire changes: %w", err)
	}

	fn := func(context.Context, ir.IRObject, ir.IRValue) (engine.Result, error) {
		if f.Fail != "" {
			return engine.Result{Changes: changes}, &engine.TransitionError{Kind: f.Fail, Message: f.Message}
		}
		return engine.Result{Destination: f.Destination, Changes: changes}, nil
	}

	return engine.Call{
		Transition: engine.Transition{Name: f.Transition, Fn: fn},
		Args:       args,
		Attempt:    f.Attempt,
		EventID:    f.EventID,
	}, nil
}
