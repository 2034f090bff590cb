package testutil

import (
	"sync/atomic"

	"github.com/roach88/dpstore/internal/metrics"
)

// Counter is a metrics.Counter that remembers how often it was incremented.
type Counter struct {
	n atomic.Int64
}

// Inc implements metrics.Counter.
func (c *Counter) Inc() { c.n.Add(1) }

// Value returns the number of increments.
func (c *Counter) Value() int64 { return c.n.Load() }

// Timers counts started and observed timers.
type Timers struct {
	Started  atomic.Int64
	Observed atomic.Int64
}

// Func returns a metrics.TimerFunc backed by t.
func (t *Timers) Func() metrics.TimerFunc {
	return func() metrics.Timer {
		t.Started.Add(1)
		return observeFunc(func() { t.Observed.Add(1) })
	}
}

type observeFunc func()

func (f observeFunc) ObserveDuration() { f() }
