// Package sbi exposes the per-NF HTTP APIs of the core simulator. Each NF
// namespace gets its own gin route group (/amf, /smf, /upf, /nrf, /nssf,
// /pcf, /udm) with a uniform health probe, plus root endpoints for overall
// health, store metrics and the audit log stream.
package sbi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/free5gc/coresim/internal/amf"
	"github.com/free5gc/coresim/internal/audit"
	"github.com/free5gc/coresim/internal/ausf"
	coresimctx "github.com/free5gc/coresim/internal/context"
	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/nrf"
	"github.com/free5gc/coresim/internal/nssf"
	"github.com/free5gc/coresim/internal/pcf"
	"github.com/free5gc/coresim/internal/smf"
	"github.com/free5gc/coresim/internal/storage"
	"github.com/free5gc/coresim/internal/upf"
)

// Server serves the simulator's HTTP APIs.
type Server struct {
	registry       nrf.Registry
	selector       nssf.Selector
	authenticator  ausf.Authenticator
	policies       pcf.Provider
	registration   amf.Registration
	sessions       smf.Orchestrator
	simulator      upf.Simulator
	store          storage.Store
	tailer         audit.Tailer
	runtimeContext coresimctx.RuntimeContext

	router     *gin.Engine
	httpServer *http.Server
}

// Dependencies bundles everything the server needs; all fields are required
// except Tailer, without which the log stream endpoint reports unavailable.
type Dependencies struct {
	Registry       nrf.Registry
	Selector       nssf.Selector
	Authenticator  ausf.Authenticator
	Policies       pcf.Provider
	Registration   amf.Registration
	Sessions       smf.Orchestrator
	Simulator      upf.Simulator
	Store          storage.Store
	Tailer         audit.Tailer
	RuntimeContext coresimctx.RuntimeContext
}

// NewServer builds the gin router and the underlying http.Server for the
// given listen address.
func NewServer(listenAddr string, deps Dependencies) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		registry:       deps.Registry,
		selector:       deps.Selector,
		authenticator:  deps.Authenticator,
		policies:       deps.Policies,
		registration:   deps.Registration,
		sessions:       deps.Sessions,
		simulator:      deps.Simulator,
		store:          deps.Store,
		tailer:         deps.Tailer,
		runtimeContext: deps.RuntimeContext,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	server.addRoutes(router)

	server.router = router
	server.httpServer = &http.Server{
		Addr:        listenAddr,
		Handler:     router,
		ReadTimeout: 5 * time.Second,
		// No WriteTimeout: the log stream endpoint holds its connection open.
	}

	return server
}

// Router exposes the gin engine for httptest-based tests.
func (server *Server) Router() *gin.Engine {
	return server.router
}

// Serve starts the HTTP server and blocks until it stops.
func (server *Server) Serve() error {
	logger.SbiLog.Infof("Starting SBI server on %s", server.httpServer.Addr)
	if err := server.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (server *Server) Shutdown(ctx context.Context) error {
	return server.httpServer.Shutdown(ctx)
}

// addRoutes registers all NF route groups and root endpoints.
func (server *Server) addRoutes(router *gin.Engine) {
	router.GET("/", server.handleRoot)
	router.GET("/health", server.handleRootHealth)
	router.GET("/metrics", server.handleMetrics)
	router.GET("/logs/stream", server.handleLogStream)
	router.GET("/test", server.handleStoreDiagnostics)

	nrfGroup := router.Group("/nrf")
	nrfGroup.POST("/register", server.handleNrfRegister)
	nrfGroup.GET("/services", server.handleNrfServices)
	nrfGroup.GET("/health", nfHealthHandler("NRF"))

	nssfGroup := router.Group("/nssf")
	nssfGroup.POST("/select-slice", server.handleSelectSlice)
	nssfGroup.GET("/health", nfHealthHandler("NSSF"))

	udmGroup := router.Group("/udm")
	udmGroup.POST("/authenticate", server.handleAuthenticate)
	udmGroup.GET("/health", nfHealthHandler("UDM/AUSF"))

	pcfGroup := router.Group("/pcf")
	pcfGroup.POST("/policy", server.handleSetPolicy)
	pcfGroup.GET("/policy/:policyId", server.handleGetPolicy)
	pcfGroup.GET("/health", nfHealthHandler("PCF"))

	amfGroup := router.Group("/amf")
	amfGroup.POST("/register-ue", server.handleRegisterUE)
	amfGroup.POST("/ue-registration-flow", server.handleRegistrationFlow)
	amfGroup.GET("/health", nfHealthHandler("AMF"))

	smfGroup := router.Group("/smf")
	smfGroup.POST("/pdu-session", server.handleCreateSession)
	smfGroup.POST("/establish-session", server.handleEstablishSession)
	smfGroup.GET("/health", nfHealthHandler("SMF"))

	upfGroup := router.Group("/upf")
	upfGroup.GET("/counters", server.handleCounters)
	upfGroup.POST("/simulate-traffic/:sessionId", server.handleSimulateTraffic)
	upfGroup.GET("/health", nfHealthHandler("UPF"))
}

// corsMiddleware applies the permissive CORS policy expected by the
// simulator's browser frontends.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
