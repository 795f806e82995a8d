// Package nrf implements the NF registry. It tracks which NF instances exist
// and their type/capabilities; the session orchestrator uses it to resolve a
// concrete UPF instance.
package nrf

import (
	"context"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/storage"
)

// Registration outcome statuses.
const (
	StatusRegistered = "registered"
	StatusUpdated    = "updated"
)

// Registry is the abstraction for NF service registration and discovery.
type Registry interface {
	// Register creates or fully replaces the record for service.NfID and
	// returns StatusRegistered or StatusUpdated. At most one record ever
	// exists per NfID.
	Register(ctx context.Context, service model.NFService) (string, error)

	// List returns all registered NF services.
	List(ctx context.Context) ([]model.NFService, error)

	// FindByType returns the first registered service of the given type, or
	// found=false when none is registered.
	FindByType(ctx context.Context, nfType model.NFType) (model.NFService, bool, error)
}

// registryImpl is the concrete implementation of Registry.
type registryImpl struct {
	store storage.Store
	sink  audit.Sink
}

// NewRegistry creates a Registry over the given store and audit sink.
func NewRegistry(store storage.Store, sink audit.Sink) Registry {
	return &registryImpl{
		store: store,
		sink:  sink,
	}
}

// Register implements Registry.Register.
func (registry *registryImpl) Register(
	ctx context.Context,
	service model.NFService,
) (string, error) {
	if service.Status == "" {
		service.Status = "HEALTHY"
	}
	if service.Capabilities == nil {
		service.Capabilities = []string{}
	}

	filter := storage.Filter{"nf_id": service.NfID}

	var existing model.NFService
	found, findError := registry.store.FindOne(ctx, model.CollectionNFService, filter, &existing)
	if findError != nil {
		return "", nferr.StoreUnavailable(findError, "look up NF service %s", service.NfID)
	}

	status := StatusRegistered
	if found {
		set := map[string]any{
			"nf_type":      service.NfType,
			"status":       service.Status,
			"api_base":     service.ApiBase,
			"capabilities": service.Capabilities,
		}
		if _, updateError := registry.store.UpdateOne(ctx, model.CollectionNFService, filter, set); updateError != nil {
			return "", nferr.StoreUnavailable(updateError, "update NF service %s", service.NfID)
		}
		status = StatusUpdated
	} else {
		if createError := registry.store.CreateOne(ctx, model.CollectionNFService, service); createError != nil {
			return "", nferr.StoreUnavailable(createError, "create NF service %s", service.NfID)
		}
	}

	if appendError := registry.sink.Append(ctx, "NRF", "INFO", "NF service "+status, map[string]any{
		"nf_id":   service.NfID,
		"nf_type": service.NfType,
	}); appendError != nil {
		return "", nferr.StoreUnavailable(appendError, "record NF registration of %s", service.NfID)
	}

	logger.NrfLog.Infof("NF service %s nfId=%s nfType=%s", status, service.NfID, service.NfType)
	return status, nil
}

// List implements Registry.List.
func (registry *registryImpl) List(ctx context.Context) ([]model.NFService, error) {
	services := make([]model.NFService, 0)
	if err := registry.store.FindMany(ctx, model.CollectionNFService, storage.Filter{}, &services); err != nil {
		return nil, nferr.StoreUnavailable(err, "list NF services")
	}
	return services, nil
}

// FindByType implements Registry.FindByType.
func (registry *registryImpl) FindByType(
	ctx context.Context,
	nfType model.NFType,
) (model.NFService, bool, error) {
	var service model.NFService
	found, err := registry.store.FindOne(
		ctx,
		model.CollectionNFService,
		storage.Filter{"nf_type": nfType},
		&service,
	)
	if err != nil {
		return model.NFService{}, false, nferr.StoreUnavailable(err, "find NF service of type %s", nfType)
	}
	return service, found, nil
}
