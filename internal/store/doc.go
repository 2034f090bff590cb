// Package store guards the four-key document kept on a subject field and
// folds transition outcomes into it.
//
// An EventStore is bound to one (subject, field) pair. The document it owns
// has exactly four keys:
//   - status: current state machine status, null before the first success
//   - state:  accumulated domain state, merged key by key on commit
//   - events: append-only log of attempts keyed by event id
//   - errors: parallel log holding each attempt's error record (or {})
//
// # Commit protocol
//
// Commit validates the outcome without touching the document, applies the
// status/state/errors/events update in memory, then persists the whole
// document through the subject (SetField followed by Save). A failed
// persist leaves the in-memory document ahead of durable storage; the
// store is then tainted and refuses further commits until Reload or Reset.
//
// # Shape validation
//
// The four-key check happens only at the deserialization boundary
// (DecodeDocument). A non-empty field that is not a valid document fails
// Bind with a *ShapeError. Shape errors are never repaired automatically.
//
// # Concurrency
//
// An EventStore is not safe for concurrent use and assumes a single writer
// per subject. Two stores bound to the same field silently lose updates
// unless the subject detects it (see ErrConflict).
package store
