// Package prom provides Prometheus implementations of the metrics interfaces.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/dpstore/internal/metrics"
	"github.com/roach88/dpstore/internal/store"
)

// timer wraps a Prometheus histogram to implement the Timer interface.
type timer struct {
	h     prometheus.Observer
	start time.Time
}

func newTimer(h prometheus.Observer) metrics.Timer {
	return &timer{h: h, start: time.Now()}
}

func (t *timer) ObserveDuration() {
	t.h.Observe(time.Since(t.start).Seconds())
}

// Default histogram buckets for latency metrics (in seconds).
var defaultBuckets = []float64{
	.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10,
}

// StoreMetrics holds the Prometheus collectors behind store.Metrics.
// Every series is labelled with the document field.
type StoreMetrics struct {
	commits         *prometheus.CounterVec
	commitFailures  *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	shapeErrors     *prometheus.CounterVec
	resets          *prometheus.CounterVec
	persistDuration *prometheus.HistogramVec
}

// NewStoreMetrics creates the collectors and registers them on reg.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpstore_commits_total",
			Help: "Total number of committed outcomes",
		}, []string{"field"}),

		commitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpstore_commit_failures_total",
			Help: "Total number of rejected or unpersisted commits",
		}, []string{"field"}),

		persistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpstore_persist_failures_total",
			Help: "Total number of failed subject writes",
		}, []string{"field"}),

		shapeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpstore_shape_errors_total",
			Help: "Total number of stored documents that failed validation",
		}, []string{"field"}),

		resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpstore_resets_total",
			Help: "Total number of document resets",
		}, []string{"field"}),

		persistDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dpstore_persist_duration_seconds",
			Help:    "Subject write latency in seconds",
			Buckets: defaultBuckets,
		}, []string{"field"}),
	}

	reg.MustRegister(
		m.commits,
		m.commitFailures,
		m.persistFailures,
		m.shapeErrors,
		m.resets,
		m.persistDuration,
	)

	return m
}

// For returns the store.Metrics reporting under the given field label.
func (m *StoreMetrics) For(field string) *store.Metrics {
	duration := m.persistDuration.WithLabelValues(field)
	return &store.Metrics{
		Commits:         m.commits.WithLabelValues(field),
		CommitFailures:  m.commitFailures.WithLabelValues(field),
		PersistFailures: m.persistFailures.WithLabelValues(field),
		ShapeErrors:     m.shapeErrors.WithLabelValues(field),
		Resets:          m.resets.WithLabelValues(field),
		PersistDuration: func() metrics.Timer { return newTimer(duration) },
	}
}
