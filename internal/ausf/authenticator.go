// Package ausf implements the combined UDM/AUSF role: it verifies subscriber
// existence and issues an opaque authentication token. The token is a
// deterministic function of the SUPI; it is a simulated credential, not a
// cryptographic artifact.
package ausf

import (
	"context"

	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/storage"
)

// ResultOK is the result value reported on successful authentication.
const ResultOK = "OK"

// Authenticator verifies subscribers against the UE collection.
type Authenticator interface {
	// Authenticate looks up the UE by SUPI and returns {OK, token}. It
	// fails with a NotFound error when no UE record exists.
	Authenticate(ctx context.Context, supi string) (model.AuthResponse, error)
}

// authenticatorImpl is the concrete implementation of Authenticator.
type authenticatorImpl struct {
	store storage.Store
	sink  audit.Sink
}

// NewAuthenticator creates an Authenticator over the given store and audit sink.
func NewAuthenticator(store storage.Store, sink audit.Sink) Authenticator {
	return &authenticatorImpl{
		store: store,
		sink:  sink,
	}
}

// Authenticate implements Authenticator.Authenticate.
func (authenticator *authenticatorImpl) Authenticate(
	ctx context.Context,
	supi string,
) (model.AuthResponse, error) {
	var ue model.UE
	found, findError := authenticator.store.FindOne(
		ctx,
		model.CollectionUE,
		storage.Filter{"supi": supi},
		&ue,
	)
	if findError != nil {
		return model.AuthResponse{}, nferr.StoreUnavailable(findError, "look up UE %s", supi)
	}
	if !found {
		return model.AuthResponse{}, nferr.NotFound("UE %s not found", supi)
	}

	if appendError := authenticator.sink.Append(ctx, "UDM/AUSF", "INFO", "UE authenticated", map[string]any{
		"supi": supi,
	}); appendError != nil {
		return model.AuthResponse{}, nferr.StoreUnavailable(appendError, "record authentication of %s", supi)
	}

	logger.UdmLog.Infof("UE authenticated supi=%s", supi)

	return model.AuthResponse{
		Result: ResultOK,
		Token:  "auth-" + supi,
	}, nil
}
