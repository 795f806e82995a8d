// Package amf implements the registration orchestrator. It drives the UE
// Registration procedure across the simulated UDM/AUSF and NSSF in strict
// sequence: authenticate, select slice, mutate the UE record.
//
// The sequence is not atomic across steps: a failure after authentication
// leaves the UE with registered=false and performs no rollback. Each flow
// persists its state machine through the flow recorder, so a half-updated UE
// is diagnosable from the flow record rather than silently left behind.
package amf

import (
	"context"
	"time"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/ausf"
	"github.com/free5gc/coresim/internal/flow"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/nssf"
	"github.com/free5gc/coresim/internal/storage"
)

// Registration outcome statuses for the admin RegisterUE operation.
const (
	StatusRegistered = "registered"
	StatusUpdated    = "updated"
)

// Registration drives the UE Registration procedure.
type Registration interface {
	// RegisterUE is the administrative create-or-update of a UE record. The
	// record is marked registered immediately; the full flow below is the
	// procedure-accurate path.
	RegisterUE(ctx context.Context, ue model.UE) (string, error)

	// RunRegistrationFlow performs the registration procedure for
	// (supi, plmn) and returns the selected slice identifier.
	RunRegistrationFlow(ctx context.Context, supi string, plmn string) (string, error)
}

// registrationImpl is the concrete implementation of Registration.
type registrationImpl struct {
	store         storage.Store
	sink          audit.Sink
	authenticator ausf.Authenticator
	selector      nssf.Selector
	flows         flow.Recorder
	amfID         string
}

// NewRegistration creates the registration orchestrator. The authenticator
// and slice selector are injected so the orchestrator stays testable with
// in-memory fakes.
func NewRegistration(
	store storage.Store,
	sink audit.Sink,
	authenticator ausf.Authenticator,
	selector nssf.Selector,
	flows flow.Recorder,
	amfID string,
) Registration {
	return &registrationImpl{
		store:         store,
		sink:          sink,
		authenticator: authenticator,
		selector:      selector,
		flows:         flows,
		amfID:         amfID,
	}
}

// RegisterUE implements Registration.RegisterUE.
func (registration *registrationImpl) RegisterUE(
	ctx context.Context,
	ue model.UE,
) (string, error) {
	now := time.Now().UTC()
	filter := storage.Filter{"supi": ue.Supi}

	var existing model.UE
	found, findError := registration.store.FindOne(ctx, model.CollectionUE, filter, &existing)
	if findError != nil {
		return "", nferr.StoreUnavailable(findError, "look up UE %s", ue.Supi)
	}

	status := StatusRegistered
	if found {
		set := map[string]any{
			"plmn":       ue.Plmn,
			"slices":     sliceList(ue.Slices),
			"registered": true,
			"last_seen":  now,
		}
		if ue.Guti != "" {
			set["guti"] = ue.Guti
		}
		if ue.AmfID != "" {
			set["amf_id"] = ue.AmfID
		}
		if _, updateError := registration.store.UpdateOne(ctx, model.CollectionUE, filter, set); updateError != nil {
			return "", nferr.StoreUnavailable(updateError, "update UE %s", ue.Supi)
		}
		status = StatusUpdated
	} else {
		ue.Registered = true
		ue.LastSeen = &now
		ue.Slices = sliceList(ue.Slices)
		if createError := registration.store.CreateOne(ctx, model.CollectionUE, ue); createError != nil {
			return "", nferr.StoreUnavailable(createError, "create UE %s", ue.Supi)
		}
	}

	if appendError := registration.sink.Append(ctx, "AMF", "INFO", "UE "+status, map[string]any{
		"supi": ue.Supi,
	}); appendError != nil {
		return "", nferr.StoreUnavailable(appendError, "record UE registration of %s", ue.Supi)
	}

	logger.AmfLog.Infof("UE %s supi=%s", status, ue.Supi)
	return status, nil
}

// RunRegistrationFlow implements Registration.RunRegistrationFlow.
//
// Side effect ordering matters: authentication must precede slice selection
// must precede the UE mutation, because later steps assume earlier ones
// succeeded.
func (registration *registrationImpl) RunRegistrationFlow(
	ctx context.Context,
	supi string,
	plmn string,
) (string, error) {
	// Ensure a UE record exists; first contact creates it unregistered.
	created, ensureError := registration.store.EnsureOne(
		ctx,
		model.CollectionUE,
		storage.Filter{"supi": supi},
		model.UE{
			Supi:       supi,
			Plmn:       plmn,
			Slices:     []string{},
			Registered: false,
		},
	)
	if ensureError != nil {
		return "", nferr.StoreUnavailable(ensureError, "ensure UE %s", supi)
	}
	if created {
		logger.AmfLog.Debugf("UE record created on first contact supi=%s", supi)
	}

	flowID, flowError := registration.flows.Begin(ctx, model.FlowKindRegistration, supi)
	if flowError != nil {
		return "", flowError
	}

	// Authenticate via UDM/AUSF.
	authResponse, authError := registration.authenticator.Authenticate(ctx, supi)
	if authError != nil {
		registration.flows.Fail(ctx, flowID, authError)
		return "", authError
	}
	if authResponse.Result != ausf.ResultOK {
		authError = nferr.Auth("authentication failed for %s", supi)
		registration.flows.Fail(ctx, flowID, authError)
		return "", authError
	}
	if advanceError := registration.flows.Advance(ctx, flowID, model.FlowStateAuthenticated); advanceError != nil {
		return "", advanceError
	}

	// Slice selection via NSSF.
	sliceID, selectError := registration.selector.SelectSlice(ctx, supi, plmn)
	if selectError != nil {
		registration.flows.Fail(ctx, flowID, selectError)
		return "", selectError
	}
	if advanceError := registration.flows.Advance(ctx, flowID, model.FlowStateSliceSelected); advanceError != nil {
		return "", advanceError
	}

	// Commit the registration onto the UE record.
	set := map[string]any{
		"registered": true,
		"last_seen":  time.Now().UTC(),
		"slices":     []string{sliceID},
		"amf_id":     registration.amfID,
	}
	if _, updateError := registration.store.UpdateOne(ctx, model.CollectionUE, storage.Filter{"supi": supi}, set); updateError != nil {
		wrapped := nferr.StoreUnavailable(updateError, "update UE %s", supi)
		registration.flows.Fail(ctx, flowID, wrapped)
		return "", wrapped
	}

	if appendError := registration.sink.Append(ctx, "AMF", "INFO", "UE registration flow complete", map[string]any{
		"supi":  supi,
		"slice": sliceID,
	}); appendError != nil {
		return "", nferr.StoreUnavailable(appendError, "record registration flow of %s", supi)
	}

	if advanceError := registration.flows.Advance(ctx, flowID, model.FlowStateCommitted); advanceError != nil {
		return "", advanceError
	}

	logger.AmfLog.Infof("UE registration flow complete supi=%s slice=%s", supi, sliceID)
	return sliceID, nil
}

func sliceList(slices []string) []string {
	if slices == nil {
		return []string{}
	}
	return slices
}
