// Package smf implements the session orchestrator. It drives PDU Session
// Establishment: registration precondition, policy snapshot, UPF resolution
// through the NF registry, session creation, and lazy UPF state creation.
// The N4 installation of the real protocol stack is simulated as direct
// state writes.
package smf

import (
	"context"
	"fmt"
	"time"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/flow"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/nrf"
	"github.com/free5gc/coresim/internal/pcf"
	"github.com/free5gc/coresim/internal/storage"
)

// DefaultDnn is used when an establishment request does not name a data
// network.
const DefaultDnn = "internet"

// DefaultSNssai is the last-resort slice identifier when neither the request
// nor the UE record names one.
const DefaultSNssai = "default"

// Orchestrator drives PDU Session Establishment.
type Orchestrator interface {
	// CreateSession stores a fully specified session, attaching the current
	// policy snapshot as its QoS rules.
	CreateSession(ctx context.Context, session model.PDUSession) error

	// EstablishSession runs the establishment procedure and returns the new
	// session identifier, the resolved UPF and the policy snapshot.
	EstablishSession(ctx context.Context, request model.SessionEstablishRequest) (model.SessionEstablishResponse, error)
}

// orchestratorImpl is the concrete implementation of Orchestrator.
type orchestratorImpl struct {
	store        storage.Store
	sink         audit.Sink
	policies     pcf.Provider
	registry     nrf.Registry
	flows        flow.Recorder
	smfID        string
	defaultUpfID string
}

// NewOrchestrator creates the session orchestrator. Policy provider and NF
// registry are injected so the orchestrator stays testable in isolation.
func NewOrchestrator(
	store storage.Store,
	sink audit.Sink,
	policies pcf.Provider,
	registry nrf.Registry,
	flows flow.Recorder,
	smfID string,
	defaultUpfID string,
) Orchestrator {
	return &orchestratorImpl{
		store:        store,
		sink:         sink,
		policies:     policies,
		registry:     registry,
		flows:        flows,
		smfID:        smfID,
		defaultUpfID: defaultUpfID,
	}
}

// CreateSession implements Orchestrator.CreateSession.
func (orchestrator *orchestratorImpl) CreateSession(
	ctx context.Context,
	session model.PDUSession,
) error {
	qos, qosError := orchestrator.policies.PickAnyQos(ctx)
	if qosError != nil {
		return qosError
	}
	session.QosRules = qos

	if session.State == "" {
		session.State = model.SessionStateActive
	}

	if createError := orchestrator.store.CreateOne(ctx, model.CollectionPDUSession, session); createError != nil {
		return nferr.StoreUnavailable(createError, "create PDU session %s", session.SessionID)
	}

	if appendError := orchestrator.sink.Append(ctx, "SMF", "INFO", "PDU session created", map[string]any{
		"session_id": session.SessionID,
		"supi":       session.Supi,
	}); appendError != nil {
		return nferr.StoreUnavailable(appendError, "record PDU session %s", session.SessionID)
	}

	logger.SmfLog.Infof("PDU session created sessionId=%s supi=%s", session.SessionID, session.Supi)
	return nil
}

// EstablishSession implements Orchestrator.EstablishSession.
func (orchestrator *orchestratorImpl) EstablishSession(
	ctx context.Context,
	request model.SessionEstablishRequest,
) (model.SessionEstablishResponse, error) {
	dnn := request.Dnn
	if dnn == "" {
		dnn = DefaultDnn
	}

	// A session can only be established for a registered UE.
	var ue model.UE
	found, findError := orchestrator.store.FindOne(
		ctx,
		model.CollectionUE,
		storage.Filter{"supi": request.Supi, "registered": true},
		&ue,
	)
	if findError != nil {
		return model.SessionEstablishResponse{}, nferr.StoreUnavailable(findError, "look up UE %s", request.Supi)
	}
	if !found {
		return model.SessionEstablishResponse{}, nferr.UENotRegistered("UE %s is not registered", request.Supi)
	}

	flowID, flowError := orchestrator.flows.Begin(ctx, model.FlowKindSession, request.Supi)
	if flowError != nil {
		return model.SessionEstablishResponse{}, flowError
	}

	// Policy snapshot; copied onto the session, never referenced.
	qos, qosError := orchestrator.policies.PickAnyQos(ctx)
	if qosError != nil {
		orchestrator.flows.Fail(ctx, flowID, qosError)
		return model.SessionEstablishResponse{}, qosError
	}

	// Resolve a UPF through the NRF, falling back to the configured literal.
	upfID := orchestrator.defaultUpfID
	upfService, upfFound, upfError := orchestrator.registry.FindByType(ctx, model.NFTypeUPF)
	if upfError != nil {
		orchestrator.flows.Fail(ctx, flowID, upfError)
		return model.SessionEstablishResponse{}, upfError
	}
	if upfFound {
		upfID = upfService.NfID
	}

	sNssai := request.Slice
	if sNssai == "" {
		if len(ue.Slices) > 0 {
			sNssai = ue.Slices[0]
		} else {
			sNssai = DefaultSNssai
		}
	}

	session := model.PDUSession{
		// Nanosecond resolution keeps back-to-back establishments for the
		// same SUPI from colliding on the session identifier.
		SessionID: fmt.Sprintf("sess-%s-%d", request.Supi, time.Now().UnixNano()),
		Supi:      request.Supi,
		Dnn:       dnn,
		SNssai:    sNssai,
		SmfID:     orchestrator.smfID,
		UpfID:     upfID,
		State:     model.SessionStateActive,
		QosRules:  qos,
	}

	if createError := orchestrator.store.CreateOne(ctx, model.CollectionPDUSession, session); createError != nil {
		wrapped := nferr.StoreUnavailable(createError, "create PDU session %s", session.SessionID)
		orchestrator.flows.Fail(ctx, flowID, wrapped)
		return model.SessionEstablishResponse{}, wrapped
	}

	// Simulated N4: make sure the UPF has a zero-initialized aggregate
	// counter record. An existing record is left untouched.
	if _, ensureError := orchestrator.store.EnsureOne(
		ctx,
		model.CollectionUPFState,
		storage.Filter{"upf_id": upfID},
		model.UPFState{UpfID: upfID},
	); ensureError != nil {
		wrapped := nferr.StoreUnavailable(ensureError, "ensure UPF state %s", upfID)
		orchestrator.flows.Fail(ctx, flowID, wrapped)
		return model.SessionEstablishResponse{}, wrapped
	}

	if appendError := orchestrator.sink.Append(ctx, "SMF", "INFO", "Session established", map[string]any{
		"session_id": session.SessionID,
	}); appendError != nil {
		return model.SessionEstablishResponse{}, nferr.StoreUnavailable(appendError, "record session %s", session.SessionID)
	}

	if advanceError := orchestrator.flows.Advance(ctx, flowID, model.FlowStateCommitted); advanceError != nil {
		return model.SessionEstablishResponse{}, advanceError
	}

	logger.SmfLog.Infof(
		"session established sessionId=%s supi=%s dnn=%s sNssai=%s upf=%s",
		session.SessionID, request.Supi, dnn, sNssai, upfID,
	)

	return model.SessionEstablishResponse{
		Result:    "OK",
		SessionID: session.SessionID,
		Upf:       upfID,
		Qos:       qos,
	}, nil
}
