package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
)

// Row is one subject backed by the subject_fields table. It implements
// store.Subject.
//
// Field remembers the version it read. Save only writes a field when the
// stored version still matches; otherwise it fails with store.ErrConflict.
// A field that was staged without being read first is written
// unconditionally.
type Row struct {
	store     *Store
	subjectID string

	mu       sync.Mutex
	versions map[string]int64 // version observed by Field; 0 = absent
	staged   map[string][]byte
}

// Row returns the subject with the given id. Nothing is read until Field.
func (s *Store) Row(subjectID string) *Row {
	return &Row{
		store:     s,
		subjectID: subjectID,
		versions:  make(map[string]int64),
		staged:    make(map[string][]byte),
	}
}

// ID returns the subject id.
func (r *Row) ID() string {
	return r.subjectID
}

// Field returns the stored value of name, or nil when the row doesn't exist.
func (r *Row) Field(ctx context.Context, name string) ([]byte, error) {
	var (
		value   []byte
		version int64
	)
	err := r.store.db.QueryRowContext(ctx, `
		SELECT value, version FROM subject_fields
		WHERE subject_id = ? AND field = ?
	`, r.subjectID, name).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		value, version = nil, 0
	} else if err != nil {
		return nil, fmt.Errorf("read field %s/%s: %w", r.subjectID, name, err)
	}

	r.mu.Lock()
	r.versions[name] = version
	r.mu.Unlock()
	return value, nil
}

// Version returns the version last observed or written for name.
func (r *Row) Version(name string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[name]
	return v, ok
}

// SetField stages value for the next Save.
func (r *Row) SetField(name string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staged[name] = slices.Clone(value)
	return nil
}

// Save writes every staged field in one transaction. On failure nothing is
// written and the fields stay staged.
func (r *Row) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.staged) == 0 {
		return nil
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: begin tx: %w", r.subjectID, err)
	}
	defer tx.Rollback() // No-op if committed

	now := r.store.now().UTC().Format(ir.TimeFormat)
	written := make(map[string]int64, len(r.staged))

	names := make([]string, 0, len(r.staged))
	for name := range r.staged {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		expected, seen := r.versions[name]
		version, err := r.writeField(ctx, tx, name, r.staged[name], expected, seen, now)
		if err != nil {
			return err
		}
		written[name] = version
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s: commit: %w", r.subjectID, err)
	}

	for name, version := range written {
		r.versions[name] = version
	}
	clear(r.staged)
	return nil
}

// writeField writes one field inside tx and returns its new version.
func (r *Row) writeField(ctx context.Context, tx *sql.Tx, name string, value []byte, expected int64, seen bool, now string) (int64, error) {
	conflict := func() error {
		return fmt.Errorf("save %s/%s at version %d: %w", r.subjectID, name, expected, store.ErrConflict)
	}

	switch {
	case !seen:
		var version int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO subject_fields (subject_id, field, value, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(subject_id, field) DO UPDATE SET
				value = excluded.value,
				version = subject_fields.version + 1,
				updated_at = excluded.updated_at
			RETURNING version
		`, r.subjectID, name, value, now).Scan(&version)
		if err != nil {
			return 0, fmt.Errorf("save %s/%s: %w", r.subjectID, name, err)
		}
		return version, nil

	case expected == 0:
		result, err := tx.ExecContext(ctx, `
			INSERT INTO subject_fields (subject_id, field, value, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(subject_id, field) DO NOTHING
		`, r.subjectID, name, value, now)
		if err != nil {
			return 0, fmt.Errorf("save %s/%s: %w", r.subjectID, name, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return 0, fmt.Errorf("save %s/%s: %w", r.subjectID, name, err)
		} else if n == 0 {
			return 0, conflict()
		}
		return 1, nil

	default:
		result, err := tx.ExecContext(ctx, `
			UPDATE subject_fields
			SET value = ?, version = version + 1, updated_at = ?
			WHERE subject_id = ? AND field = ? AND version = ?
		`, value, now, r.subjectID, name, expected)
		if err != nil {
			return 0, fmt.Errorf("save %s/%s: %w", r.subjectID, name, err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return 0, fmt.Errorf("save %s/%s: %w", r.subjectID, name, err)
		} else if n == 0 {
			return 0, conflict()
		}
		return expected + 1, nil
	}
}
