package prom

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
	"github.com/roach88/dpstore/internal/subject/memory"
)

func TestNewStoreMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	require.NotNil(t, m)

	sm := m.For("pipeline")
	sm.Commits.Inc()
	sm.Resets.Inc()
	timer := sm.PersistDuration()
	assert.NotNil(t, timer)
	timer.ObserveDuration()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.commits.WithLabelValues("pipeline")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.resets.WithLabelValues("pipeline")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.commits.WithLabelValues("other")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "dpstore_commits_total")
	assert.Contains(t, names, "dpstore_persist_duration_seconds")
}

func TestNewStoreMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewStoreMetrics(reg)
	assert.Panics(t, func() { NewStoreMetrics(reg) })
}

func TestStoreMetrics_DriveEventStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	ctx := context.Background()
	subj := memory.New()

	es, err := store.Bind(ctx, subj, "pipeline",
		store.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		store.WithMetrics(m.For("pipeline")),
	)
	require.NoError(t, err)

	require.NoError(t, es.Commit(ctx, ir.Outcome{EventID: "e1", Success: true, Destination: "active"}))
	subj.FailSaves(errors.New("disk full"))
	require.Error(t, es.Commit(ctx, ir.Outcome{EventID: "e2"}))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.commits.WithLabelValues("pipeline")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.commitFailures.WithLabelValues("pipeline")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.persistFailures.WithLabelValues("pipeline")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.persistDuration))
}
