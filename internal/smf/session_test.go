package smf_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/flow"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/nrf"
	"github.com/free5gc/coresim/internal/pcf"
	"github.com/free5gc/coresim/internal/smf"
	"github.com/free5gc/coresim/internal/storage"
)

type orchestratorFixture struct {
	orchestrator smf.Orchestrator
	store        storage.Store
	policies     pcf.Provider
	registry     nrf.Registry
}

func newOrchestratorFixture() orchestratorFixture {
	store := storage.NewMemoryStore()
	sink := audit.NewStoreSink(store)
	policies := pcf.NewProvider(store, sink)
	registry := nrf.NewRegistry(store, sink)
	return orchestratorFixture{
		orchestrator: smf.NewOrchestrator(store, sink, policies, registry, flow.NewRecorder(store), "smf-1", "upf-1"),
		store:        store,
		policies:     policies,
		registry:     registry,
	}
}

func (f orchestratorFixture) registerUE(t *testing.T, supi string, slices ...string) {
	t.Helper()
	require.NoError(t, f.store.CreateOne(context.Background(), model.CollectionUE, model.UE{
		Supi:       supi,
		Plmn:       "001-01",
		Slices:     slices,
		Registered: true,
	}))
}

func TestEstablishSession(t *testing.T) {
	fixture := newOrchestratorFixture()
	ctx := context.Background()
	fixture.registerUE(t, "imsi-1", "1")

	response, err := fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{Supi: "imsi-1"})
	require.NoError(t, err)
	assert.Equal(t, "OK", response.Result)
	assert.True(t, strings.HasPrefix(response.SessionID, "sess-imsi-1-"))
	assert.Equal(t, "upf-1", response.Upf)
	assert.Equal(t, map[string]any{"5qi": 9}, response.Qos)

	var session model.PDUSession
	found, err := fixture.store.FindOne(ctx, model.CollectionPDUSession, storage.Filter{"supi": "imsi-1"}, &session)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, smf.DefaultDnn, session.Dnn)
	assert.Equal(t, "1", session.SNssai, "slice inherited from the UE record")
	assert.Equal(t, "smf-1", session.SmfID)
	assert.Equal(t, model.SessionStateActive, session.State)
	assert.Equal(t, int64(0), session.ULBytes)
	assert.Equal(t, int64(0), session.DLBytes)

	var upfState model.UPFState
	found, err = fixture.store.FindOne(ctx, model.CollectionUPFState, storage.Filter{"upf_id": "upf-1"}, &upfState)
	require.NoError(t, err)
	require.True(t, found, "aggregate counter record created lazily")
	assert.Equal(t, int64(0), upfState.ULBytes)

	var flowRecord model.Flow
	found, err = fixture.store.FindOne(ctx, model.CollectionFlow, storage.Filter{"supi": "imsi-1"}, &flowRecord)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.FlowKindSession, flowRecord.Kind)
	assert.Equal(t, model.FlowStateCommitted, flowRecord.State)
}

func TestEstablishSessionUENotRegistered(t *testing.T) {
	fixture := newOrchestratorFixture()
	ctx := context.Background()

	// Present but unregistered is as bad as absent.
	require.NoError(t, fixture.store.CreateOne(ctx, model.CollectionUE, model.UE{
		Supi: "imsi-2", Plmn: "001-01", Registered: false,
	}))

	_, err := fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{Supi: "imsi-2"})
	require.Error(t, err)
	assert.Equal(t, nferr.KindUENotRegistered, nferr.KindOf(err))

	count, countErr := fixture.store.CountDocuments(ctx, model.CollectionPDUSession, storage.Filter{})
	require.NoError(t, countErr)
	assert.Equal(t, int64(0), count, "no session written on failure")
}

func TestEstablishSessionSliceFallbackChain(t *testing.T) {
	fixture := newOrchestratorFixture()
	ctx := context.Background()

	fixture.registerUE(t, "imsi-explicit", "7")
	response, err := fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{
		Supi:  "imsi-explicit",
		Slice: "99",
	})
	require.NoError(t, err)

	var session model.PDUSession
	_, err = fixture.store.FindOne(ctx, model.CollectionPDUSession, storage.Filter{"session_id": response.SessionID}, &session)
	require.NoError(t, err)
	assert.Equal(t, "99", session.SNssai, "explicit request wins over UE slice")

	fixture.registerUE(t, "imsi-bare")
	response, err = fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{Supi: "imsi-bare"})
	require.NoError(t, err)

	_, err = fixture.store.FindOne(ctx, model.CollectionPDUSession, storage.Filter{"session_id": response.SessionID}, &session)
	require.NoError(t, err)
	assert.Equal(t, smf.DefaultSNssai, session.SNssai, "no request slice, no UE slice")
}

func TestEstablishSessionResolvesUpfThroughRegistry(t *testing.T) {
	fixture := newOrchestratorFixture()
	ctx := context.Background()
	fixture.registerUE(t, "imsi-1", "1")

	_, err := fixture.registry.Register(ctx, model.NFService{
		NfType:  model.NFTypeUPF,
		NfID:    "upf-west",
		ApiBase: "http://upf-west:8000",
	})
	require.NoError(t, err)

	response, err := fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{Supi: "imsi-1"})
	require.NoError(t, err)
	assert.Equal(t, "upf-west", response.Upf)
}

func TestEstablishSessionQosSnapshotIsImmutable(t *testing.T) {
	fixture := newOrchestratorFixture()
	ctx := context.Background()
	fixture.registerUE(t, "imsi-1", "1")

	_, err := fixture.policies.SetPolicy(ctx, model.PolicyRule{
		PolicyID: "default",
		Qos:      map[string]any{"5qi": 9, "mbr_ul": "10Mbps"},
	})
	require.NoError(t, err)

	response, err := fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{Supi: "imsi-1"})
	require.NoError(t, err)

	// Change the policy after establishment; the session keeps its snapshot.
	_, err = fixture.policies.SetPolicy(ctx, model.PolicyRule{
		PolicyID: "default",
		Qos:      map[string]any{"5qi": 1},
	})
	require.NoError(t, err)

	var session model.PDUSession
	_, err = fixture.store.FindOne(ctx, model.CollectionPDUSession, storage.Filter{"session_id": response.SessionID}, &session)
	require.NoError(t, err)
	assert.Equal(t, float64(9), session.QosRules["5qi"])
	assert.Equal(t, "10Mbps", session.QosRules["mbr_ul"])
}

func TestEstablishSessionBackToBackIDsAreDistinct(t *testing.T) {
	fixture := newOrchestratorFixture()
	ctx := context.Background()
	fixture.registerUE(t, "imsi-1", "1")

	first, err := fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{Supi: "imsi-1"})
	require.NoError(t, err)
	second, err := fixture.orchestrator.EstablishSession(ctx, model.SessionEstablishRequest{Supi: "imsi-1"})
	require.NoError(t, err)

	assert.NotEqual(t, first.SessionID, second.SessionID)

	var sessions []model.PDUSession
	require.NoError(t, fixture.store.FindMany(ctx, model.CollectionPDUSession, storage.Filter{"supi": "imsi-1"}, &sessions))
	assert.Len(t, sessions, 2)
}
