package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/storage"
)

func TestSinkAppendsImmutableEntries(t *testing.T) {
	store := storage.NewMemoryStore()
	sink := audit.NewStoreSink(store)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, "AMF", "INFO", "UE registered", map[string]any{"supi": "imsi-1"}))
	require.NoError(t, sink.Append(ctx, "SMF", "INFO", "Session established", nil))

	var entries []model.LogEntry
	require.NoError(t, store.FindMany(ctx, model.CollectionLogEntry, storage.Filter{}, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "AMF", entries[0].NF)
	assert.Equal(t, "imsi-1", entries[0].Context["supi"])
	assert.False(t, entries[0].CreatedAt.IsZero())
	assert.NotNil(t, entries[1].Context, "nil context is stored as an empty map")
}

func TestTailerDeliversNewEntries(t *testing.T) {
	store := storage.NewMemoryStore()
	sink := audit.NewStoreSink(store)
	tailer := audit.NewTailer(store, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, tailer.Start(ctx))
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, tailer.Stop(stopCtx))
	}()

	entries, cancel := tailer.Subscribe()
	defer cancel()

	require.NoError(t, sink.Append(ctx, "NSSF", "INFO", "Slice selected", map[string]any{"slice": "1"}))

	select {
	case entry := <-entries:
		assert.Equal(t, "NSSF", entry.NF)
		assert.Equal(t, "Slice selected", entry.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("no entry delivered before timeout")
	}
}

func TestTailerSubscribeCancelClosesChannel(t *testing.T) {
	tailer := audit.NewTailer(storage.NewMemoryStore(), 10*time.Millisecond)

	entries, cancel := tailer.Subscribe()
	cancel()

	_, open := <-entries
	assert.False(t, open)

	// A second cancel is a no-op.
	cancel()
}

func TestTailerStopIsIdempotent(t *testing.T) {
	tailer := audit.NewTailer(storage.NewMemoryStore(), 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, tailer.Start(ctx))
	require.NoError(t, tailer.Stop(ctx))
	require.NoError(t, tailer.Stop(ctx))
}
