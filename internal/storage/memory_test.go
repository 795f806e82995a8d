package storage_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/storage"
)

func TestMemoryStoreCreateAndFindOne(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOne(ctx, model.CollectionUE, model.UE{
		Supi:       "imsi-1",
		Plmn:       "001-01",
		Slices:     []string{},
		Registered: false,
	}))

	var ue model.UE
	found, err := store.FindOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-1"}, &ue)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "imsi-1", ue.Supi)
	assert.Equal(t, "001-01", ue.Plmn)
	assert.False(t, ue.Registered)

	found, err = store.FindOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-2"}, &ue)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreArrayContainment(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOne(ctx, model.CollectionSlice, model.Slice{
		SliceID: "1",
		Sst:     "eMBB",
		Plmns:   []string{"001-01", "001-02"},
	}))

	testCases := []struct {
		name        string
		plmn        string
		expectFound bool
	}{
		{name: "testFirstElement", plmn: "001-01", expectFound: true},
		{name: "testSecondElement", plmn: "001-02", expectFound: true},
		{name: "testAbsentElement", plmn: "999-99", expectFound: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var slice model.Slice
			found, err := store.FindOne(ctx, model.CollectionSlice, storage.Filter{"plmns": testCase.plmn}, &slice)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectFound, found)
		})
	}
}

func TestMemoryStoreFirstMatchIsInsertionOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOne(ctx, model.CollectionSlice, model.Slice{SliceID: "a", Sst: "eMBB", Plmns: []string{}}))
	require.NoError(t, store.CreateOne(ctx, model.CollectionSlice, model.Slice{SliceID: "b", Sst: "eMBB", Plmns: []string{}}))

	var slice model.Slice
	found, err := store.FindOne(ctx, model.CollectionSlice, storage.Filter{}, &slice)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "a", slice.SliceID)
}

func TestMemoryStoreUpdateOne(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOne(ctx, model.CollectionUE, model.UE{
		Supi:   "imsi-1",
		Plmn:   "001-01",
		Slices: []string{},
	}))

	matched, err := store.UpdateOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-1"}, map[string]any{
		"registered": true,
		"slices":     []string{"1"},
	})
	require.NoError(t, err)
	assert.True(t, matched)

	var ue model.UE
	found, err := store.FindOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-1"}, &ue)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, ue.Registered)
	assert.Equal(t, []string{"1"}, ue.Slices)

	matched, err = store.UpdateOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-9"}, map[string]any{
		"registered": true,
	})
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestMemoryStoreEnsureOne(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	created, err := store.EnsureOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"},
		model.UPFState{UpfID: "upf-1"})
	require.NoError(t, err)
	assert.True(t, created)

	// An existing record is left untouched.
	_, err = store.UpdateOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"}, map[string]any{
		"ul_bytes": 500,
	})
	require.NoError(t, err)

	created, err = store.EnsureOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"},
		model.UPFState{UpfID: "upf-1"})
	require.NoError(t, err)
	assert.False(t, created)

	var state model.UPFState
	found, err := store.FindOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"}, &state)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(500), state.ULBytes)

	count, err := store.CountDocuments(ctx, model.CollectionUPFState, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStoreIncrementOne(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	// Upsert path creates the document from identity fields plus deltas.
	require.NoError(t, store.IncrementOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"},
		map[string]int64{"ul_bytes": 100, "dl_bytes": 200}, true))

	require.NoError(t, store.IncrementOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"},
		map[string]int64{"ul_bytes": 100, "dl_bytes": 200}, true))

	var state model.UPFState
	found, err := store.FindOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"}, &state)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(200), state.ULBytes)
	assert.Equal(t, int64(400), state.DLBytes)

	// Without upsert, a miss is a no-op.
	require.NoError(t, store.IncrementOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-9"},
		map[string]int64{"ul_bytes": 1}, false))

	count, err := store.CountDocuments(ctx, model.CollectionUPFState, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryStoreFindMany(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOne(ctx, model.CollectionNFService, model.NFService{
		NfID: "upf-a", NfType: model.NFTypeUPF, ApiBase: "http://upf-a", Capabilities: []string{},
	}))
	require.NoError(t, store.CreateOne(ctx, model.CollectionNFService, model.NFService{
		NfID: "amf-a", NfType: model.NFTypeAMF, ApiBase: "http://amf-a", Capabilities: []string{},
	}))
	require.NoError(t, store.CreateOne(ctx, model.CollectionNFService, model.NFService{
		NfID: "upf-b", NfType: model.NFTypeUPF, ApiBase: "http://upf-b", Capabilities: []string{},
	}))

	var upfs []model.NFService
	require.NoError(t, store.FindMany(ctx, model.CollectionNFService, storage.Filter{"nf_type": model.NFTypeUPF}, &upfs))
	require.Len(t, upfs, 2)
	assert.Equal(t, "upf-a", upfs[0].NfID)
	assert.Equal(t, "upf-b", upfs[1].NfID)

	var all []model.NFService
	require.NoError(t, store.FindMany(ctx, model.CollectionNFService, storage.Filter{}, &all))
	assert.Len(t, all, 3)
}

func TestMemoryStoreConcurrentFindManyAndUpdateOne(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateOne(ctx, model.CollectionUE, model.UE{
		Supi: "imsi-1", Plmn: "001-01", Slices: []string{}, Registered: false,
	}))

	// Readers decode the stored documents while writers mutate them in
	// place; both must stay inside the store's lock.
	var group sync.WaitGroup
	for worker := 0; worker < 4; worker++ {
		group.Add(2)
		go func() {
			defer group.Done()
			for i := 0; i < 500; i++ {
				var ues []model.UE
				if err := store.FindMany(ctx, model.CollectionUE, storage.Filter{}, &ues); err != nil {
					t.Error(err)
					return
				}
			}
		}()
		go func() {
			defer group.Done()
			for i := 0; i < 500; i++ {
				set := map[string]any{"plmn": "001-01", "registered": i%2 == 0}
				if _, err := store.UpdateOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-1"}, set); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	group.Wait()

	var ue model.UE
	found, err := store.FindOne(ctx, model.CollectionUE, storage.Filter{"supi": "imsi-1"}, &ue)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "001-01", ue.Plmn)
}
