// Package memory provides an in-process Subject.
//
// Values staged with SetField only become visible to Field after a
// successful Save, mirroring a database row whose attributes were assigned
// but not yet written.
package memory

import (
	"context"
	"slices"
	"sync"
)

// Subject keeps fields in memory. Safe for concurrent use.
type Subject struct {
	mu      sync.Mutex
	durable map[string][]byte
	staged  map[string][]byte
	saveErr error
	saves   int
}

// New returns a subject with no fields.
func New() *Subject {
	return &Subject{
		durable: make(map[string][]byte),
		staged:  make(map[string][]byte),
	}
}

// Field returns the durable value of name, or nil.
func (s *Subject) Field(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.durable[name]), nil
}

// SetField stages value for the next Save.
func (s *Subject) SetField(name string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged[name] = slices.Clone(value)
	return nil
}

// Save makes staged fields durable. When a save error is configured it is
// returned and staged values stay pending.
func (s *Subject) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for name, value := range s.staged {
		s.durable[name] = value
	}
	clear(s.staged)
	s.saves++
	return nil
}

// Put writes a durable value directly, bypassing staging.
func (s *Subject) Put(name string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durable[name] = slices.Clone(value)
}

// FailSaves makes every following Save return err. Pass nil to recover.
func (s *Subject) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// Saves returns the number of successful saves.
func (s *Subject) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
