// Package metrics provides abstract metrics interfaces so the store can be
// instrumented without depending on a specific backend.
package metrics

// Counter is a monotonically increasing metric.
type Counter interface {
	// Inc increments the counter by 1.
	Inc()
}

// Timer measures the duration of an operation. Call ObserveDuration when
// the operation completes.
type Timer interface {
	ObserveDuration()
}

// TimerFunc starts a new Timer. This allows deferred timing patterns like:
//
//	defer m.PersistDuration().ObserveDuration()
type TimerFunc func() Timer
