package engine

import "time"

// Clock supplies the wall-clock timestamps written into event and error
// records. Timestamps are informational only: the events log is ordered by
// commit, never by time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system time.
type SystemClock struct{}

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
