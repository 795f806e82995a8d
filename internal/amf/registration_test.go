package amf_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free5gc/coresim/internal/amf"
	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/ausf"
	"github.com/free5gc/coresim/internal/flow"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/nssf"
	"github.com/free5gc/coresim/internal/storage"
)

func newTestRegistration(t *testing.T, slices ...model.Slice) (amf.Registration, storage.Store) {
	t.Helper()

	store := storage.NewMemoryStore()
	for _, slice := range slices {
		require.NoError(t, store.CreateOne(context.Background(), model.CollectionSlice, slice))
	}
	sink := audit.NewStoreSink(store)
	return amf.NewRegistration(
		store,
		sink,
		ausf.NewAuthenticator(store, sink),
		nssf.NewSelector(store, sink),
		flow.NewRecorder(store),
		"amf-1",
	), store
}

func TestRunRegistrationFlow(t *testing.T) {
	registration, store := newTestRegistration(t, model.Slice{
		SliceID: "1",
		Sst:     "eMBB",
		Plmns:   []string{"001-01"},
	})
	ctx := context.Background()

	sliceID, err := registration.RunRegistrationFlow(ctx, "imsi-1", "001-01")
	require.NoError(t, err)
	assert.Equal(t, "1", sliceID)

	var ue model.UE
	found, err := store.FindOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-1"}, &ue)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, ue.Registered)
	assert.Equal(t, []string{"1"}, ue.Slices)
	assert.Equal(t, "amf-1", ue.AmfID)
	require.NotNil(t, ue.LastSeen)

	// Each sub-step leaves an audit entry: auth, slice selection, completion.
	count, err := store.CountDocuments(ctx, model.CollectionLogEntry, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	var flowRecord model.Flow
	found, err = store.FindOne(ctx, model.CollectionFlow, storage.Filter{"supi": "imsi-1"}, &flowRecord)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.FlowKindRegistration, flowRecord.Kind)
	assert.Equal(t, model.FlowStateCommitted, flowRecord.State)
}

func TestRunRegistrationFlowNoSlices(t *testing.T) {
	registration, store := newTestRegistration(t)
	ctx := context.Background()

	_, err := registration.RunRegistrationFlow(ctx, "imsi-1", "001-01")
	require.Error(t, err)
	assert.Equal(t, nferr.KindNoSliceAvailable, nferr.KindOf(err))

	// The first-contact record exists but stays unregistered.
	var ue model.UE
	found, findErr := store.FindOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-1"}, &ue)
	require.NoError(t, findErr)
	require.True(t, found)
	assert.False(t, ue.Registered)

	// The flow record ends in FAILED with the cause preserved.
	var flowRecord model.Flow
	found, findErr = store.FindOne(ctx, model.CollectionFlow, storage.Filter{"supi": "imsi-1"}, &flowRecord)
	require.NoError(t, findErr)
	require.True(t, found)
	assert.Equal(t, model.FlowStateFailed, flowRecord.State)
	assert.Contains(t, flowRecord.Failure, "no slices configured")
}

func TestRunRegistrationFlowKeepsExistingRecord(t *testing.T) {
	registration, store := newTestRegistration(t, model.Slice{
		SliceID: "2",
		Sst:     "URLLC",
		Plmns:   []string{"001-02"},
	})
	ctx := context.Background()

	_, err := registration.RegisterUE(ctx, model.UE{Supi: "imsi-2", Plmn: "001-02", Guti: "guti-2"})
	require.NoError(t, err)

	sliceID, err := registration.RunRegistrationFlow(ctx, "imsi-2", "001-02")
	require.NoError(t, err)
	assert.Equal(t, "2", sliceID)

	count, err := store.CountDocuments(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	var ue model.UE
	_, err = store.FindOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-2"}, &ue)
	require.NoError(t, err)
	assert.Equal(t, "guti-2", ue.Guti, "fields outside the flow survive")
}

func TestRegisterUEStatuses(t *testing.T) {
	registration, _ := newTestRegistration(t)
	ctx := context.Background()

	status, err := registration.RegisterUE(ctx, model.UE{Supi: "imsi-3", Plmn: "001-01"})
	require.NoError(t, err)
	assert.Equal(t, amf.StatusRegistered, status)

	status, err = registration.RegisterUE(ctx, model.UE{Supi: "imsi-3", Plmn: "001-09"})
	require.NoError(t, err)
	assert.Equal(t, amf.StatusUpdated, status)
}
