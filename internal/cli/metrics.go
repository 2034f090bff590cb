package cli

import (
	"io"
	"log/slog"

	"github.com/prometheus/common/expfmt"

	"github.com/roach88/dpstore/internal/store"
)

// storeOptions returns the options every command binds its EventStore with.
func storeOptions(opts *StoreOptions, logger *slog.Logger) []store.Option {
	options := []store.Option{store.WithLogger(logger)}
	if opts.storeMetrics != nil {
		options = append(options, store.WithMetrics(opts.storeMetrics.For(opts.Field)))
	}
	return options
}

// writeMetrics prints the gathered store metrics to w. It does nothing
// unless --metrics was given.
func writeMetrics(opts *RootOptions, w io.Writer, logger *slog.Logger) {
	if opts.registry == nil {
		return
	}
	families, err := opts.registry.Gather()
	if err != nil {
		logger.Error("failed to gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			logger.Error("failed to write metrics", "error", err)
			return
		}
	}
}
