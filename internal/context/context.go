// Package context holds the in-memory runtime state for the core simulator:
// the identity of the simulated NF instances, process start time, and the
// shutdown flag consulted by long-running loops.
//
// Note: This package is named "context", so we alias the standard library
// "context" package to avoid name collisions.
package context

import (
	stdctx "context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/free5gc/coresim/internal/logger"
)

// InstanceIdentity names the simulated NF instances stamped onto mutated
// records. One simulator process plays every NF role at once, so a single
// identity set covers the whole core.
type InstanceIdentity struct {
	// InstanceID uniquely identifies this simulator process.
	InstanceID string

	// AmfID is written to UE.amf_id on successful registration.
	AmfID string

	// SmfID is written to PDUSession.smf_id on establishment.
	SmfID string

	// DefaultUpfID is the fallback UPF identifier used when no NFService of
	// type UPF is registered.
	DefaultUpfID string
}

// RuntimeContext provides concurrency-safe access to instance identity and
// lifecycle flags.
type RuntimeContext interface {
	// Identity returns the NF instance identity for this process.
	Identity() InstanceIdentity

	// StartedAt returns the time the runtime context was created.
	StartedAt() time.Time

	// SetShutdownRequested marks whether a graceful shutdown has been requested.
	SetShutdownRequested(ctx stdctx.Context, requested bool)

	// IsShutdownRequested returns true if shutdown has been requested.
	IsShutdownRequested() bool
}

// runtimeContextImpl is the concrete implementation of RuntimeContext.
type runtimeContextImpl struct {
	identity  InstanceIdentity
	startedAt time.Time

	mutexForShutdown  sync.RWMutex
	shutdownRequested bool
}

// NewRuntimeContext creates a RuntimeContext with a fresh process instance ID.
func NewRuntimeContext(amfID string, smfID string, defaultUpfID string) RuntimeContext {
	identity := InstanceIdentity{
		InstanceID:   uuid.NewString(),
		AmfID:        amfID,
		SmfID:        smfID,
		DefaultUpfID: defaultUpfID,
	}

	logger.ContextLog.Infof(
		"runtime context created instanceId=%s amfId=%s smfId=%s defaultUpfId=%s",
		identity.InstanceID, identity.AmfID, identity.SmfID, identity.DefaultUpfID,
	)

	return &runtimeContextImpl{
		identity:  identity,
		startedAt: time.Now().UTC(),
	}
}

// Identity implements RuntimeContext.Identity.
func (runtime *runtimeContextImpl) Identity() InstanceIdentity {
	return runtime.identity
}

// StartedAt implements RuntimeContext.StartedAt.
func (runtime *runtimeContextImpl) StartedAt() time.Time {
	return runtime.startedAt
}

// SetShutdownRequested implements RuntimeContext.SetShutdownRequested.
func (runtime *runtimeContextImpl) SetShutdownRequested(
	ctx stdctx.Context,
	requested bool,
) {
	runtime.mutexForShutdown.Lock()
	defer runtime.mutexForShutdown.Unlock()
	runtime.shutdownRequested = requested

	logger.ContextLog.Infof("shutdown requested=%t", requested)
}

// IsShutdownRequested implements RuntimeContext.IsShutdownRequested.
func (runtime *runtimeContextImpl) IsShutdownRequested() bool {
	runtime.mutexForShutdown.RLock()
	defer runtime.mutexForShutdown.RUnlock()
	return runtime.shutdownRequested
}
