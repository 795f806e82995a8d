package flow_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free5gc/coresim/internal/flow"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/storage"
)

func TestRecorderLifecycle(t *testing.T) {
	store := storage.NewMemoryStore()
	recorder := flow.NewRecorder(store)
	ctx := context.Background()

	flowID, err := recorder.Begin(ctx, model.FlowKindRegistration, "imsi-1")
	require.NoError(t, err)
	require.NotEmpty(t, flowID)

	var record model.Flow
	found, err := store.FindOne(ctx, model.CollectionFlow, storage.Filter{"flow_id": flowID}, &record)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.FlowStateStarted, record.State)
	assert.Equal(t, "imsi-1", record.Supi)

	require.NoError(t, recorder.Advance(ctx, flowID, model.FlowStateAuthenticated))
	require.NoError(t, recorder.Advance(ctx, flowID, model.FlowStateCommitted))

	_, err = store.FindOne(ctx, model.CollectionFlow, storage.Filter{"flow_id": flowID}, &record)
	require.NoError(t, err)
	assert.Equal(t, model.FlowStateCommitted, record.State)
	assert.True(t, record.UpdatedAt.After(record.CreatedAt) || record.UpdatedAt.Equal(record.CreatedAt))
}

func TestRecorderFailKeepsCause(t *testing.T) {
	store := storage.NewMemoryStore()
	recorder := flow.NewRecorder(store)
	ctx := context.Background()

	flowID, err := recorder.Begin(ctx, model.FlowKindSession, "imsi-2")
	require.NoError(t, err)

	recorder.Fail(ctx, flowID, errors.New("upstream rejected"))

	var record model.Flow
	_, err = store.FindOne(ctx, model.CollectionFlow, storage.Filter{"flow_id": flowID}, &record)
	require.NoError(t, err)
	assert.Equal(t, model.FlowStateFailed, record.State)
	assert.Equal(t, "upstream rejected", record.Failure)
}

func TestRecorderSeparateFlowsPerProcedure(t *testing.T) {
	store := storage.NewMemoryStore()
	recorder := flow.NewRecorder(store)
	ctx := context.Background()

	first, err := recorder.Begin(ctx, model.FlowKindRegistration, "imsi-3")
	require.NoError(t, err)
	second, err := recorder.Begin(ctx, model.FlowKindRegistration, "imsi-3")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	count, err := store.CountDocuments(ctx, model.CollectionFlow, storage.Filter{"supi": "imsi-3"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
