package store

import "context"

// Subject owns the persisted field holding the document.
//
// Field returns the current serialized document, or nil/empty when the field
// has never been written. SetField stages a new value; it must not make the
// value durable. Save makes every staged value durable and must return an
// error when it could not.
type Subject interface {
	Field(ctx context.Context, name string) ([]byte, error)
	SetField(name string, value []byte) error
	Save(ctx context.Context) error
}
