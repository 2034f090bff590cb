package natskv

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roach88/dpstore/internal/ir"
	"github.com/roach88/dpstore/internal/store"
)

var _ store.Subject = (*Subject)(nil)

func newTestContainer(t *testing.T) Connector {
	t.Helper()
	if os.Getenv("DPSTORE_TEST_NATS") == "" {
		t.Skip("set DPSTORE_TEST_NATS=1 to run NATS container tests")
	}

	ctx := t.Context()
	natsC, err := testcontainers.Run(
		ctx, "nats:latest",
		testcontainers.WithCmd("-js"),
		testcontainers.WithExposedPorts("4222/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("4222/tcp"),
			wait.ForLog("Server is ready"),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(natsC); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	endpoint, err := natsC.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)
	t.Logf("nats endpoint: %s", endpoint)
	return ConnectURL(endpoint)
}

func openBucket(t *testing.T) *Bucket {
	t.Helper()
	b, err := Open(t.Context(), Config{Connect: newTestContainer(t), Bucket: "pipelines"})
	require.NoError(t, err)
	t.Cleanup(b.Close)
	return b
}

func TestKey(t *testing.T) {
	key, err := Key("order-1", "pipeline")
	require.NoError(t, err)
	assert.Equal(t, "order-1.pipeline", key)

	key, err = Key("tenant=a/order_1", "pipeline")
	require.NoError(t, err)
	assert.Equal(t, "tenant=a/order_1.pipeline", key)
}

func TestKey_RejectsAmbiguousTokens(t *testing.T) {
	tests := []struct {
		name           string
		subject, field string
	}{
		{"dotted subject", "a.b", "c"},
		{"dotted field", "a", "b.c"},
		{"empty subject", "", "pipeline"},
		{"empty field", "order-1", ""},
		{"wildcard", "order-*", "pipeline"},
		{"full wildcard", "order-1", ">"},
		{"space", "order 1", "pipeline"},
		{"non-ascii", "caf\u00e9", "pipeline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Key(tt.subject, tt.field)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestSubject_SetFieldRejectsInvalidKey(t *testing.T) {
	b := &Bucket{}
	assert.ErrorIs(t, b.Subject("a.b").SetField("c", []byte("{}")), ErrInvalidKey)
	assert.ErrorIs(t, b.Subject("a").SetField("b.c", []byte("{}")), ErrInvalidKey)
	require.NoError(t, b.Subject("a").SetField("c", []byte("{}")))
}

func TestIsWrongRevision(t *testing.T) {
	assert.False(t, isWrongRevision(nil))
	assert.False(t, isWrongRevision(context.DeadlineExceeded))
	assert.True(t, isWrongRevision(jetstream.ErrKeyExists))
}

func TestSubject_SaveAndConflict(t *testing.T) {
	b := openBucket(t)
	ctx := t.Context()

	a := b.Subject("order-1")
	value, err := a.Field(ctx, "pipeline")
	require.NoError(t, err)
	assert.Nil(t, value)

	other := b.Subject("order-1")
	_, err = other.Field(ctx, "pipeline")
	require.NoError(t, err)

	require.NoError(t, a.SetField("pipeline", []byte(`1`)))
	require.NoError(t, a.Save(ctx))
	rev, ok := a.Revision("pipeline")
	assert.True(t, ok)
	assert.NotZero(t, rev)

	require.NoError(t, other.SetField("pipeline", []byte(`2`)))
	assert.ErrorIs(t, other.Save(ctx), store.ErrConflict)

	_, err = other.Field(ctx, "pipeline")
	require.NoError(t, err)
	require.NoError(t, other.Save(ctx))

	require.NoError(t, a.SetField("pipeline", []byte(`3`)))
	assert.ErrorIs(t, a.Save(ctx), store.ErrConflict)

	value, err = b.Subject("order-1").Field(ctx, "pipeline")
	require.NoError(t, err)
	assert.Equal(t, `2`, string(value))
}

func TestSubject_BacksEventStore(t *testing.T) {
	b := openBucket(t)
	ctx := t.Context()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	es, err := store.Bind(ctx, b.Subject("order-1"), "pipeline", store.WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, es.Commit(ctx, ir.Outcome{
		EventID: "e1", Success: true, Destination: "active",
		Changes: ir.IRObject{"count": ir.IRInt(1)},
	}))

	reopened, err := store.Bind(ctx, b.Subject("order-1"), "pipeline", store.WithLogger(logger))
	require.NoError(t, err)
	status, ok := reopened.Status()
	assert.True(t, ok)
	assert.Equal(t, "active", status)
	assert.Equal(t, []string{"e1"}, reopened.Events())
}
