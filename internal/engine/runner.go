package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
)

// TransitionFunc computes a transition from the current state.
// state is a copy; mutating it has no effect.
type TransitionFunc func(ctx context.Context, state ir.IRObject, args ir.IRValue) (Result, error)

// Transition is a named transition.
type Transition struct {
	Name string
	Fn   TransitionFunc
}

// Result is what a transition produced.
type Result struct {
	// Destination is the status to move to. Required on success.
	Destination string

	// Changes are merged into the state. They are kept when the
	// transition fails too.
	Changes ir.IRObject
}

// Call is one attempt to run a transition.
type Call struct {
	Transition Transition
	Args       ir.IRValue

	// Attempt is recorded as attempts_count. Default: 1.
	Attempt int64

	// EventID overrides the generated event id.
	EventID string
}

// Runner fires transitions against an EventStore.
//
// Thread-safety: a Runner holds no per-call state; its safety is that of
// the IDGenerator and Clock it was given. EventStores are single-writer.
type Runner struct {
	ids    IDGenerator
	clock  Clock
	logger *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithIDGenerator sets the event id source. Default: UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) RunnerOption {
	return func(r *Runner) {
		if ids != nil {
			r.ids = ids
		}
	}
}

// WithClock sets the timestamp source. Default: SystemClock.
func WithClock(clock Clock) RunnerOption {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		ids:    UUIDv7Generator{},
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fire runs call.Transition and commits the outcome to es.
//
// The returned outcome is what was committed, or what would have been
// committed when the commit failed. Transition failures are recorded, not
// returned.
func (r *Runner) Fire(ctx context.Context, es *store.EventStore, call Call) (ir.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return ir.Outcome{}, fmt.Errorf("fire: %w", err)
	}
	if call.Transition.Fn == nil {
		return ir.Outcome{}, fmt.Errorf("fire %q: transition has no function", call.Transition.Name)
	}

	id := call.EventID
	if id == "" {
		id = r.ids.Generate()
	}
	attempt := call.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	createdAt := r.clock.Now()
	res, err := invoke(ctx, call.Transition.Fn, es.State(), ir.CloneValue(call.Args))
	updatedAt := r.clock.Now()

	if err == nil && res.Destination == "" {
		err = NewTransitionError(KindMissingDestination, "transition %q returned no destination", call.Transition.Name)
	}

	outcome := ir.Outcome{
		EventID: id,
		Changes: res.Changes.Clone(),
		Data: ir.EventData{
			Transition:    call.Transition.Name,
			Args:          call.Args,
			Changes:       res.Changes,
			CreatedAt:     createdAt,
			UpdatedAt:     updatedAt,
			AttemptsCount: attempt,
		}.Object(),
	}
	if err != nil {
		outcome.Error = ir.ErrorData{
			Kind:      ErrorKind(err),
			Message:   ErrorMessage(err),
			CreatedAt: updatedAt,
		}.Object()
	} else {
		outcome.Success = true
		outcome.Destination = res.Destination
	}

	if cerr := es.Commit(ctx, outcome); cerr != nil {
		r.logger.Warn("commit failed",
			"transition", call.Transition.Name,
			"event_id", id,
			"error", cerr,
		)
		return outcome, fmt.Errorf("fire %q: %w", call.Transition.Name, cerr)
	}

	if err != nil {
		r.logger.Info("transition failed",
			"transition", call.Transition.Name,
			"event_id", id,
			"attempt", attempt,
			"kind", outcome.Error.StringAt(ir.ErrorKind),
		)
	} else {
		r.logger.Debug("transition fired",
			"transition", call.Transition.Name,
			"event_id", id,
			"destination", res.Destination,
		)
	}
	return outcome, nil
}

// invoke calls fn and converts a panic into a TransitionError.
func invoke(ctx context.Context, fn TransitionFunc, state ir.IRObject, args ir.IRValue) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{}
			perr, ok := p.(error)
			if !ok {
				perr = errors.New(fmt.Sprint(p))
			}
			err = &TransitionError{Kind: KindPanic, Err: perr}
		}
	}()
	return fn(ctx, state, args)
}
