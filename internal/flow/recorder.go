// Package flow persists per-procedure state machines for the multi-step
// orchestration flows. The steps of a flow span several store operations with
// no transaction boundary, so the recorder writes the current state after
// each step; a record stuck between STARTED and COMMITTED identifies a flow
// that died half way.
package flow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/storage"
)

// Recorder tracks orchestration flow state in the flow collection.
type Recorder interface {
	// Begin creates a flow record in state STARTED and returns its identifier.
	Begin(ctx context.Context, kind string, supi string) (string, error)

	// Advance moves the flow to the given intermediate or terminal state.
	Advance(ctx context.Context, flowID string, state string) error

	// Fail marks the flow FAILED, recording the cause. Unlike Advance, a
	// store error here is logged and dropped so the original failure stays
	// the one reported to the caller.
	Fail(ctx context.Context, flowID string, cause error)
}

// recorderImpl is the concrete implementation of Recorder.
type recorderImpl struct {
	store storage.Store
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store storage.Store) Recorder {
	return &recorderImpl{store: store}
}

// Begin implements Recorder.Begin.
func (recorder *recorderImpl) Begin(ctx context.Context, kind string, supi string) (string, error) {
	now := time.Now().UTC()
	record := model.Flow{
		FlowID:    uuid.NewString(),
		Kind:      kind,
		Supi:      supi,
		State:     model.FlowStateStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if createError := recorder.store.CreateOne(ctx, model.CollectionFlow, record); createError != nil {
		return "", nferr.StoreUnavailable(createError, "create flow record for %s", supi)
	}
	return record.FlowID, nil
}

// Advance implements Recorder.Advance.
func (recorder *recorderImpl) Advance(ctx context.Context, flowID string, state string) error {
	set := map[string]any{
		"state":      state,
		"updated_at": time.Now().UTC(),
	}
	if _, updateError := recorder.store.UpdateOne(ctx, model.CollectionFlow, storage.Filter{"flow_id": flowID}, set); updateError != nil {
		return nferr.StoreUnavailable(updateError, "advance flow %s to %s", flowID, state)
	}
	return nil
}

// Fail implements Recorder.Fail.
func (recorder *recorderImpl) Fail(ctx context.Context, flowID string, cause error) {
	set := map[string]any{
		"state":      model.FlowStateFailed,
		"failure":    cause.Error(),
		"updated_at": time.Now().UTC(),
	}
	if _, updateError := recorder.store.UpdateOne(ctx, model.CollectionFlow, storage.Filter{"flow_id": flowID}, set); updateError != nil {
		logger.AuditLog.Warnf("could not mark flow %s failed: %v", flowID, updateError)
	}
}
