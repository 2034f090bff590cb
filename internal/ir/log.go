package ir

import "iter"

// Log is an append-only map keyed by event id that remembers insertion order.
// The zero value is ready to use.
type Log[T any] struct {
	ids     []string
	entries map[string]T
}

// NewLog returns an empty log.
func NewLog[T any]() *Log[T] {
	return &Log[T]{entries: make(map[string]T)}
}

// Len returns the number of entries.
func (l *Log[T]) Len() int {
	if l == nil {
		return 0
	}
	return len(l.ids)
}

// Has reports whether id has been written.
func (l *Log[T]) Has(id string) bool {
	if l == nil {
		return false
	}
	_, ok := l.entries[id]
	return ok
}

// Get returns the entry for id.
func (l *Log[T]) Get(id string) (T, bool) {
	var zero T
	if l == nil {
		return zero, false
	}
	v, ok := l.entries[id]
	return v, ok
}

// Append adds a new entry. Existing ids are never overwritten: Append
// returns false and leaves the log unchanged when id is already present.
func (l *Log[T]) Append(id string, v T) bool {
	if l.entries == nil {
		l.entries = make(map[string]T)
	}
	if _, ok := l.entries[id]; ok {
		return false
	}
	l.ids = append(l.ids, id)
	l.entries[id] = v
	return true
}

// IDs returns a copy of the ids in insertion order.
func (l *Log[T]) IDs() []string {
	if l == nil {
		return nil
	}
	out := make([]string, len(l.ids))
	copy(out, l.ids)
	return out
}

// All iterates entries in insertion order.
func (l *Log[T]) All() iter.Seq2[string, T] {
	return func(yield func(string, T) bool) {
		if l == nil {
			return
		}
		for _, id := range l.ids {
			if !yield(id, l.entries[id]) {
				return
			}
		}
	}
}
