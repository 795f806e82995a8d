// Package app wires together all major components of the core simulator:
//   - configuration
//   - logging
//   - runtime context
//   - storage backend
//   - the seven NF components
//   - audit sink and log tailer
//   - the SBI HTTP server.
//
// The App implementation is intentionally small and procedural, so that
// cmd can simply create an App from the loaded Config and call Start/Stop
// without knowing internal details.
package app

import (
	stdctx "context"
	"fmt"
	"sync"
	"time"

	"github.com/free5gc/coresim/internal/amf"
	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/ausf"
	coresimctx "github.com/free5gc/coresim/internal/context"
	"github.com/free5gc/coresim/internal/flow"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nrf"
	"github.com/free5gc/coresim/internal/nssf"
	"github.com/free5gc/coresim/internal/pcf"
	"github.com/free5gc/coresim/internal/sbi"
	"github.com/free5gc/coresim/internal/smf"
	"github.com/free5gc/coresim/internal/storage"
	"github.com/free5gc/coresim/internal/upf"
	"github.com/free5gc/coresim/pkg/factory"
)

// App is the high-level interface implemented by the simulator. It hides
// wiring, HTTP server startup and tailer lifecycle from cmd.
type App interface {
	// Start brings the whole simulator online: seed reference data, start
	// the SBI HTTP server and the audit log tailer.
	Start(ctx stdctx.Context) error

	// Stop attempts a graceful shutdown: mark shutdown requested, stop the
	// tailer, shut down the HTTP server and close the store.
	Stop(ctx stdctx.Context) error
}

// appImpl is the concrete implementation of App.
type appImpl struct {
	config *factory.Config

	runtimeContext coresimctx.RuntimeContext
	store          storage.Store
	policies       pcf.Provider
	tailer         audit.Tailer
	sbiServer      *sbi.Server

	startStopMutex sync.Mutex
	started        bool
}

// NewApp constructs a new App from a validated configuration. It creates the
// internal components but does not start any network listeners yet; that is
// handled by Start().
func NewApp(ctx stdctx.Context, config *factory.Config) (App, error) {
	if config == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	// Initialise logging according to configuration. It is safe if main()
	// calls InitLog again; InitLog is idempotent w.r.t logger instances and
	// updates only the level and reportCaller flag.
	if initError := logger.InitLog(config.Logging.Level, config.Logging.ReportCaller); initError != nil {
		logger.MainLog.Warnf("InitLog failed with level=%s, using fallback: %v",
			config.Logging.Level, initError)
	}

	logger.MainLog.Infof(
		"Starting coresim version=%s description=%q",
		config.Info.Version, config.Info.Description,
	)

	// Build storage backend from configuration.
	store, storageError := storage.NewStoreFromConfig(ctx, config.Storage)
	if storageError != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", storageError)
	}

	runtimeContext := coresimctx.NewRuntimeContext(
		config.Instances.AmfID,
		config.Instances.SmfID,
		config.Instances.DefaultUpfID,
	)

	sink := audit.NewStoreSink(store)
	flows := flow.NewRecorder(store)

	registry := nrf.NewRegistry(store, sink)
	selector := nssf.NewSelector(store, sink)
	authenticator := ausf.NewAuthenticator(store, sink)
	policies := pcf.NewProvider(store, sink)
	registration := amf.NewRegistration(store, sink, authenticator, selector, flows, config.Instances.AmfID)
	sessions := smf.NewOrchestrator(
		store, sink, policies, registry, flows,
		config.Instances.SmfID, config.Instances.DefaultUpfID,
	)
	simulator := upf.NewSimulator(store, sink, config.Instances.DefaultUpfID)

	tailer := audit.NewTailer(store, time.Duration(config.LogStream.PollIntervalSec)*time.Second)

	sbiServer := sbi.NewServer(config.Sbi.ListenAddr, sbi.Dependencies{
		Registry:       registry,
		Selector:       selector,
		Authenticator:  authenticator,
		Policies:       policies,
		Registration:   registration,
		Sessions:       sessions,
		Simulator:      simulator,
		Store:          store,
		Tailer:         tailer,
		RuntimeContext: runtimeContext,
	})

	return &appImpl{
		config:         config,
		runtimeContext: runtimeContext,
		store:          store,
		policies:       policies,
		tailer:         tailer,
		sbiServer:      sbiServer,
	}, nil
}

// Start implements App.Start.
func (app *appImpl) Start(ctx stdctx.Context) error {
	app.startStopMutex.Lock()
	defer app.startStopMutex.Unlock()

	if app.started {
		logger.MainLog.Warn("App.Start called more than once; ignoring subsequent call")
		return nil
	}

	app.runtimeContext.SetShutdownRequested(ctx, false)

	// Seed configured reference data before accepting requests.
	if seedError := app.seedReferenceData(ctx); seedError != nil {
		return fmt.Errorf("failed to seed reference data: %w", seedError)
	}

	// Start the SBI HTTP server in a dedicated goroutine; Stop() shuts it
	// down via http.Server.Shutdown.
	go func() {
		if serveError := app.sbiServer.Serve(); serveError != nil {
			logger.SbiLog.Errorf("SBI server stopped with error: %v", serveError)
		}
	}()

	// Start the audit log tailer feeding the log stream endpoint.
	if tailerError := app.tailer.Start(ctx); tailerError != nil {
		return fmt.Errorf("failed to start log tailer: %w", tailerError)
	}

	app.started = true
	logger.MainLog.Infof("coresim successfully started")
	return nil
}

// Stop implements App.Stop.
func (app *appImpl) Stop(ctx stdctx.Context) error {
	app.startStopMutex.Lock()
	defer app.startStopMutex.Unlock()

	if !app.started {
		return nil
	}

	logger.MainLog.Infof("coresim shutdown requested")

	app.runtimeContext.SetShutdownRequested(ctx, true)

	// Stop the tailer first so no more stream events are produced.
	if tailerError := app.tailer.Stop(ctx); tailerError != nil {
		logger.MainLog.Warnf("log tailer stop returned error: %v", tailerError)
	}

	if shutdownError := app.sbiServer.Shutdown(ctx); shutdownError != nil {
		logger.MainLog.Warnf("SBI server shutdown returned error: %v", shutdownError)
	}

	if closeError := app.store.Close(ctx); closeError != nil {
		logger.MainLog.Warnf("store close returned error: %v", closeError)
	}

	app.started = false
	logger.MainLog.Infof("coresim shutdown completed")
	return nil
}

// seedReferenceData stores the configured slices and policies. Slices are
// static reference data, so an already-present slice_id is fully replaced;
// policies go through the PCF create-or-update path to keep its semantics
// and audit records.
func (app *appImpl) seedReferenceData(ctx stdctx.Context) error {
	for _, slice := range app.config.Seed.Slices {
		filter := storage.Filter{"slice_id": slice.SliceID}

		if slice.Plmns == nil {
			slice.Plmns = []string{}
		}

		var existing model.Slice
		found, findError := app.store.FindOne(ctx, model.CollectionSlice, filter, &existing)
		if findError != nil {
			return findError
		}
		if found {
			set := map[string]any{
				"sst":         slice.Sst,
				"sd":          slice.Sd,
				"description": slice.Description,
				"plmns":       slice.Plmns,
			}
			if _, updateError := app.store.UpdateOne(ctx, model.CollectionSlice, filter, set); updateError != nil {
				return updateError
			}
		} else {
			if createError := app.store.CreateOne(ctx, model.CollectionSlice, slice); createError != nil {
				return createError
			}
		}
		logger.MainLog.Infof("seeded slice sliceId=%s sst=%s", slice.SliceID, slice.Sst)
	}

	for _, rule := range app.config.Seed.Policies {
		status, setError := app.policies.SetPolicy(ctx, rule)
		if setError != nil {
			return setError
		}
		logger.MainLog.Infof("seeded policy policyId=%s status=%s", rule.PolicyID, status)
	}

	return nil
}
