package sqlite

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
	"github.com/roach88/dpstore/internal/testutil"
)

var _ store.Subject = (*Row)(nil)

func openTest(t *testing.T) *Store {
	t.Helper()
	clock := testutil.NewStepClock()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithClock(clock.Now))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='subject_fields'",
	).Scan(&name)
	assert.NoError(t, err)

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestOpen_Pragmas(t *testing.T) {
	s := openTest(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{}
	assert.NoError(t, s.Close())
}

func TestRow_FieldMissing(t *testing.T) {
	s := openTest(t)
	row := s.Row("order-1")
	assert.Equal(t, "order-1", row.ID())

	value, err := row.Field(context.Background(), "pipeline")
	require.NoError(t, err)
	assert.Nil(t, value)

	version, ok := row.Version("pipeline")
	assert.True(t, ok)
	assert.Equal(t, int64(0), version)
}

func TestRow_SaveAndRead(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	row := s.Row("order-1")

	_, err := row.Field(ctx, "pipeline")
	require.NoError(t, err)
	require.NoError(t, row.SetField("pipeline", []byte(`{"a":1}`)))

	// Staged values are invisible until Save.
	value, err := s.Row("order-1").Field(ctx, "pipeline")
	require.NoError(t, err)
	assert.Nil(t, value)

	require.NoError(t, row.Save(ctx))

	value, err = s.Row("order-1").Field(ctx, "pipeline")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(value))

	version, _ := row.Version("pipeline")
	assert.Equal(t, int64(1), version)

	var updatedAt string
	require.NoError(t, s.db.QueryRow(
		"SELECT updated_at FROM subject_fields WHERE subject_id = 'order-1'",
	).Scan(&updatedAt))
	assert.Equal(t, testutil.Epoch.Format(ir.TimeFormat), updatedAt)
}

func TestRow_SaveWithoutStagedFieldsIsNoop(t *testing.T) {
	s := openTest(t)
	assert.NoError(t, s.Row("order-1").Save(context.Background()))

	ids, err := s.Subjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRow_VersionIncrementsOnEverySave(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	row := s.Row("order-1")
	_, err := row.Field(ctx, "pipeline")
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		require.NoError(t, row.SetField("pipeline", []byte(`{}`)))
		require.NoError(t, row.Save(ctx))
		version, _ := row.Version("pipeline")
		assert.Equal(t, int64(i), version)
	}
}

func TestRow_ConcurrentUpdateConflicts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seed := s.Row("order-1")
	require.NoError(t, seed.SetField("pipeline", []byte(`"v1"`)))
	require.NoError(t, seed.Save(ctx))

	a := s.Row("order-1")
	b := s.Row("order-1")
	_, err := a.Field(ctx, "pipeline")
	require.NoError(t, err)
	_, err = b.Field(ctx, "pipeline")
	require.NoError(t, err)

	require.NoError(t, a.SetField("pipeline", []byte(`"from a"`)))
	require.NoError(t, a.Save(ctx))

	require.NoError(t, b.SetField("pipeline", []byte(`"from b"`)))
	err = b.Save(ctx)
	assert.ErrorIs(t, err, store.ErrConflict)

	value, err := s.Row("order-1").Field(ctx, "pipeline")
	require.NoError(t, err)
	assert.Equal(t, `"from a"`, string(value))

	// After re-reading, b may write again.
	_, err = b.Field(ctx, "pipeline")
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx))
	value, err = s.Row("order-1").Field(ctx, "pipeline")
	require.NoError(t, err)
	assert.Equal(t, `"from b"`, string(value))
}

func TestRow_ConcurrentCreateConflicts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a := s.Row("order-1")
	b := s.Row("order-1")
	_, err := a.Field(ctx, "pipeline")
	require.NoError(t, err)
	_, err = b.Field(ctx, "pipeline")
	require.NoError(t, err)

	require.NoError(t, a.SetField("pipeline", []byte(`1`)))
	require.NoError(t, a.Save(ctx))
	require.NoError(t, b.SetField("pipeline", []byte(`2`)))
	assert.ErrorIs(t, b.Save(ctx), store.ErrConflict)
}

func TestRow_ConflictRollsBackEveryField(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seed := s.Row("order-1")
	require.NoError(t, seed.SetField("b", []byte(`1`)))
	require.NoError(t, seed.Save(ctx))

	row := s.Row("order-1")
	_, err := row.Field(ctx, "a")
	require.NoError(t, err)
	_, err = row.Field(ctx, "b")
	require.NoError(t, err)

	other := s.Row("order-1")
	require.NoError(t, other.SetField("b", []byte(`2`)))
	require.NoError(t, other.Save(ctx))

	require.NoError(t, row.SetField("a", []byte(`"a"`)))
	require.NoError(t, row.SetField("b", []byte(`"b"`)))
	assert.ErrorIs(t, row.Save(ctx), store.ErrConflict)

	value, err := s.Row("order-1").Field(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, value, "field a must not be written when b conflicts")
}

func TestStore_Subjects(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	for _, id := range []string{"b", "a", "b"} {
		row := s.Row(id)
		require.NoError(t, row.SetField("f-"+id, []byte(`{}`)))
		require.NoError(t, row.Save(ctx))
	}

	ids, err := s.Subjects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestRow_BacksEventStore(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	es, err := store.Bind(ctx, s.Row("order-1"), "pipeline", store.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, es.Commit(ctx, ir.Outcome{
		EventID: "e1", Success: true, Destination: "active",
		Changes: ir.IRObject{"count": ir.IRInt(1)},
	}))

	value, err := s.Row("order-1").Field(ctx, "pipeline")
	require.NoError(t, err)
	assert.Equal(t,
		`{"status":"active","state":{"count":1},"events":{"e1":{}},"errors":{"e1":{}}}`,
		string(value))

	// A second store bound to the same row loses the race.
	stale, err := store.Bind(ctx, s.Row("order-1"), "pipeline", store.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, es.Commit(ctx, ir.Outcome{EventID: "e2"}))

	err = stale.Commit(ctx, ir.Outcome{EventID: "e3"})
	assert.ErrorIs(t, err, store.ErrConflict)
	assert.True(t, store.IsPersistError(err))

	require.NoError(t, stale.Reload(ctx))
	require.NoError(t, stale.Commit(ctx, ir.Outcome{EventID: "e3"}))
	assert.Equal(t, []string{"e1", "e2", "e3"}, stale.Events())
}
