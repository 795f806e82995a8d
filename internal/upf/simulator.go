// Package upf implements the traffic simulator: synthetic uplink/downlink
// byte counters applied to a session and to the owning UPF's aggregate
// state. The two increments are each atomic within the store but not atomic
// with respect to each other.
package upf

import (
	"context"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/storage"
)

// Fixed synthetic byte counts applied when a traffic request leaves the
// fields unspecified.
const (
	DefaultULBytes int64 = 1000
	DefaultDLBytes int64 = 2000
)

// Simulator applies synthetic traffic to established sessions.
type Simulator interface {
	// Counters returns the aggregate state of every known UPF instance.
	Counters(ctx context.Context) ([]model.UPFState, error)

	// SimulateTraffic increments the byte counters of the session and its
	// owning UPF. It fails with a NotFound error when the session does not
	// exist. There is no quota enforcement.
	SimulateTraffic(ctx context.Context, sessionID string, request model.TrafficRequest) error
}

// simulatorImpl is the concrete implementation of Simulator.
type simulatorImpl struct {
	store        storage.Store
	sink         audit.Sink
	defaultUpfID string
}

// NewSimulator creates a Simulator over the given store and audit sink.
func NewSimulator(store storage.Store, sink audit.Sink, defaultUpfID string) Simulator {
	return &simulatorImpl{
		store:        store,
		sink:         sink,
		defaultUpfID: defaultUpfID,
	}
}

// Counters implements Simulator.Counters.
func (simulator *simulatorImpl) Counters(ctx context.Context) ([]model.UPFState, error) {
	states := make([]model.UPFState, 0)
	if err := simulator.store.FindMany(ctx, model.CollectionUPFState, storage.Filter{}, &states); err != nil {
		return nil, nferr.StoreUnavailable(err, "list UPF states")
	}
	return states, nil
}

// SimulateTraffic implements Simulator.SimulateTraffic.
func (simulator *simulatorImpl) SimulateTraffic(
	ctx context.Context,
	sessionID string,
	request model.TrafficRequest,
) error {
	ulBytes := DefaultULBytes
	if request.UL != nil {
		ulBytes = *request.UL
	}
	dlBytes := DefaultDLBytes
	if request.DL != nil {
		dlBytes = *request.DL
	}

	var session model.PDUSession
	found, findError := simulator.store.FindOne(
		ctx,
		model.CollectionPDUSession,
		storage.Filter{"session_id": sessionID},
		&session,
	)
	if findError != nil {
		return nferr.StoreUnavailable(findError, "look up session %s", sessionID)
	}
	if !found {
		return nferr.NotFound("session %s not found", sessionID)
	}

	increments := map[string]int64{
		"ul_bytes": ulBytes,
		"dl_bytes": dlBytes,
	}

	if incError := simulator.store.IncrementOne(
		ctx,
		model.CollectionPDUSession,
		storage.Filter{"session_id": sessionID},
		increments,
		false,
	); incError != nil {
		return nferr.StoreUnavailable(incError, "increment session %s", sessionID)
	}

	upfID := session.UpfID
	if upfID == "" {
		upfID = simulator.defaultUpfID
	}

	if incError := simulator.store.IncrementOne(
		ctx,
		model.CollectionUPFState,
		storage.Filter{"upf_id": upfID},
		increments,
		true,
	); incError != nil {
		return nferr.StoreUnavailable(incError, "increment UPF state %s", upfID)
	}

	if appendError := simulator.sink.Append(ctx, "UPF", "INFO", "Traffic simulated", map[string]any{
		"session_id": sessionID,
		"ul":         ulBytes,
		"dl":         dlBytes,
	}); appendError != nil {
		return nferr.StoreUnavailable(appendError, "record traffic on %s", sessionID)
	}

	logger.UpfLog.Infof("traffic simulated sessionId=%s ul=%d dl=%d", sessionID, ulBytes, dlBytes)
	return nil
}
