// Package nssf implements slice selection. Given a subscriber and a PLMN it
// picks a slice whose allowed-PLMN set contains the PLMN, falling back to any
// configured slice. Tie-break is first match in store iteration order, which
// the memory backend keeps stable (insertion order).
package nssf

import (
	"context"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/storage"
)

// Selector picks a network slice for a subscriber.
type Selector interface {
	// SelectSlice returns the identifier of the selected slice. It fails
	// with a NoSliceAvailable error when no slice is configured at all.
	SelectSlice(ctx context.Context, supi string, plmn string) (string, error)
}

// selectorImpl is the concrete implementation of Selector.
type selectorImpl struct {
	store storage.Store
	sink  audit.Sink
}

// NewSelector creates a Selector over the given store and audit sink.
func NewSelector(store storage.Store, sink audit.Sink) Selector {
	return &selectorImpl{
		store: store,
		sink:  sink,
	}
}

// SelectSlice implements Selector.SelectSlice.
func (selector *selectorImpl) SelectSlice(
	ctx context.Context,
	supi string,
	plmn string,
) (string, error) {
	var selected model.Slice

	found, findError := selector.store.FindOne(
		ctx,
		model.CollectionSlice,
		storage.Filter{"plmns": plmn},
		&selected,
	)
	if findError != nil {
		return "", nferr.StoreUnavailable(findError, "find slice for plmn %s", plmn)
	}

	if !found {
		// No slice allows this PLMN; fall back to any configured slice.
		found, findError = selector.store.FindOne(ctx, model.CollectionSlice, storage.Filter{}, &selected)
		if findError != nil {
			return "", nferr.StoreUnavailable(findError, "find fallback slice")
		}
	}

	if !found {
		return "", nferr.NoSliceAvailable("no slices configured")
	}

	if appendError := selector.sink.Append(ctx, "NSSF", "INFO", "Slice selected", map[string]any{
		"supi":  supi,
		"slice": selected.SliceID,
	}); appendError != nil {
		return "", nferr.StoreUnavailable(appendError, "record slice selection for %s", supi)
	}

	logger.NssfLog.Infof("slice selected supi=%s plmn=%s slice=%s", supi, plmn, selected.SliceID)
	return selected.SliceID, nil
}
