package store

import "github.com/roach88/dpstore/internal/metrics"

// Metrics is the set of instruments an EventStore reports to.
// Nil fields fall back to no-op instruments.
type Metrics struct {
	Commits         metrics.Counter
	CommitFailures  metrics.Counter
	PersistFailures metrics.Counter
	ShapeErrors     metrics.Counter
	Resets          metrics.Counter
	PersistDuration metrics.TimerFunc
}

// NopMetrics returns metrics that record nothing.
func NopMetrics() *Metrics {
	return (&Metrics{}).withDefaults()
}

func (m *Metrics) withDefaults() *Metrics {
	out := *m
	for _, c := range []*metrics.Counter{
		&out.Commits,
		&out.CommitFailures,
		&out.PersistFailures,
		&out.ShapeErrors,
		&out.Resets,
	} {
		if *c == nil {
			*c = metrics.NopCounter()
		}
	}
	if out.PersistDuration == nil {
		out.PersistDuration = metrics.NopTimerFunc()
	}
	return &out
}
