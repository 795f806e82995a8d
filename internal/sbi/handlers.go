package sbi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/gin-gonic/gin"

	"github.com/free5gc/coresim/internal/logger"
	"github.com/free5gc/coresim/internal/model"
	"github.com/free5gc/coresim/internal/nferr"
	"github.com/free5gc/coresim/internal/storage"
)

// bindAndValidate decodes the JSON body into payload and checks the
// `valid:"required"` tags once at the boundary, before any orchestration
// step runs.
func bindAndValidate(c *gin.Context, payload any) error {
	if err := c.ShouldBindJSON(payload); err != nil {
		return nferr.Validation("invalid JSON body: %v", err)
	}
	if _, err := govalidator.ValidateStruct(payload); err != nil {
		return nferr.Validation("%v", err)
	}
	return nil
}

// respondError maps an error kind to its externally observable status code.
func respondError(c *gin.Context, err error) {
	status := nferr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.SbiLog.Errorf("request failed: %v", err)
	} else {
		logger.SbiLog.Warnf("request rejected: %v", err)
	}
	c.JSON(status, gin.H{
		"code":   nferr.KindOf(err).String(),
		"detail": err.Error(),
	})
}

// nfHealthHandler returns the uniform per-NF health probe.
func nfHealthHandler(nf string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, model.HealthStatus{NF: nf, Status: "HEALTHY"})
	}
}

// ---------------------------------------------------------------------------
// Root endpoints
// ---------------------------------------------------------------------------

func (server *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "5G core simulator running"})
}

func (server *Server) handleRootHealth(c *gin.Context) {
	response := gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if server.runtimeContext != nil {
		response["instance_id"] = server.runtimeContext.Identity().InstanceID
		response["uptime"] = time.Since(server.runtimeContext.StartedAt()).Round(time.Second).String()
	}
	c.JSON(http.StatusOK, response)
}

func (server *Server) handleMetrics(c *gin.Context) {
	ctx := c.Request.Context()

	ueCount, ueError := server.store.CountDocuments(ctx, model.CollectionUE, storage.Filter{})
	if ueError != nil {
		respondError(c, nferr.StoreUnavailable(ueError, "count UEs"))
		return
	}
	sessionCount, sessionError := server.store.CountDocuments(ctx, model.CollectionPDUSession, storage.Filter{})
	if sessionError != nil {
		respondError(c, nferr.StoreUnavailable(sessionError, "count sessions"))
		return
	}
	logCount, logError := server.store.CountDocuments(ctx, model.CollectionLogEntry, storage.Filter{})
	if logError != nil {
		respondError(c, nferr.StoreUnavailable(logError, "count log entries"))
		return
	}

	c.JSON(http.StatusOK, model.MetricsResponse{
		UEs:      ueCount,
		Sessions: sessionCount,
		Logs:     logCount,
	})
}

// handleStoreDiagnostics reports whether the document store is reachable and
// how many documents each collection holds. It always answers 200 so a broken
// store is described in the body rather than hidden behind a transport error.
func (server *Server) handleStoreDiagnostics(c *gin.Context) {
	ctx := c.Request.Context()

	response := gin.H{
		"backend": "running",
		"store":   "connected",
	}
	counts := make(map[string]int64, len(model.Collections))
	for _, collection := range model.Collections {
		count, countError := server.store.CountDocuments(ctx, collection, storage.Filter{})
		if countError != nil {
			response["store"] = "unavailable"
			response["error"] = countError.Error()
			break
		}
		counts[collection] = count
	}
	response["collections"] = counts
	c.JSON(http.StatusOK, response)
}

// handleLogStream serves the audit trail as server-sent events. One event is
// emitted whenever the tailer observes new log entries; the connection stays
// open until the client disconnects or the simulator shuts down.
func (server *Server) handleLogStream(c *gin.Context) {
	if server.tailer == nil {
		respondError(c, nferr.NotFound("log stream is not enabled"))
		return
	}

	entries, cancel := server.tailer.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	clientGone := c.Request.Context().Done()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case entry, open := <-entries:
			if !open {
				return false
			}
			payload, marshalError := json.Marshal(entry)
			if marshalError != nil {
				logger.SbiLog.Warnf("failed to encode log entry for stream: %v", marshalError)
				return true
			}
			c.SSEvent("message", string(payload))
			return true
		}
	})
}

// ---------------------------------------------------------------------------
// NRF
// ---------------------------------------------------------------------------

func (server *Server) handleNrfRegister(c *gin.Context) {
	var service model.NFService
	if err := bindAndValidate(c, &service); err != nil {
		respondError(c, err)
		return
	}

	status, err := server.registry.Register(c.Request.Context(), service)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: status})
}

func (server *Server) handleNrfServices(c *gin.Context) {
	services, err := server.registry.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

// ---------------------------------------------------------------------------
// NSSF
// ---------------------------------------------------------------------------

func (server *Server) handleSelectSlice(c *gin.Context) {
	var request model.SliceSelectionRequest
	if err := bindAndValidate(c, &request); err != nil {
		respondError(c, err)
		return
	}

	sliceID, err := server.selector.SelectSlice(c.Request.Context(), request.Supi, request.Plmn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.SliceSelectionResponse{SliceID: sliceID})
}

// ---------------------------------------------------------------------------
// UDM/AUSF
// ---------------------------------------------------------------------------

func (server *Server) handleAuthenticate(c *gin.Context) {
	var request model.AuthRequest
	if err := bindAndValidate(c, &request); err != nil {
		respondError(c, err)
		return
	}

	response, err := server.authenticator.Authenticate(c.Request.Context(), request.Supi)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ---------------------------------------------------------------------------
// PCF
// ---------------------------------------------------------------------------

func (server *Server) handleSetPolicy(c *gin.Context) {
	var rule model.PolicyRule
	if err := bindAndValidate(c, &rule); err != nil {
		respondError(c, err)
		return
	}

	status, err := server.policies.SetPolicy(c.Request.Context(), rule)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: status})
}

func (server *Server) handleGetPolicy(c *gin.Context) {
	rule, err := server.policies.GetPolicy(c.Request.Context(), c.Param("policyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ---------------------------------------------------------------------------
// AMF
// ---------------------------------------------------------------------------

func (server *Server) handleRegisterUE(c *gin.Context) {
	var ue model.UE
	if err := c.ShouldBindJSON(&ue); err != nil {
		respondError(c, nferr.Validation("invalid JSON body: %v", err))
		return
	}
	if ue.Supi == "" || ue.Plmn == "" {
		respondError(c, nferr.Validation("supi and plmn required"))
		return
	}

	status, err := server.registration.RegisterUE(c.Request.Context(), ue)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: status})
}

func (server *Server) handleRegistrationFlow(c *gin.Context) {
	var request model.RegistrationFlowRequest
	if err := bindAndValidate(c, &request); err != nil {
		respondError(c, err)
		return
	}

	sliceID, err := server.registration.RunRegistrationFlow(c.Request.Context(), request.Supi, request.Plmn)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.RegistrationFlowResponse{Result: "OK", Slice: sliceID})
}

// ---------------------------------------------------------------------------
// SMF
// ---------------------------------------------------------------------------

func (server *Server) handleCreateSession(c *gin.Context) {
	var session model.PDUSession
	if err := bindAndValidate(c, &session); err != nil {
		respondError(c, err)
		return
	}

	if err := server.sessions.CreateSession(c.Request.Context(), session); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "created"})
}

func (server *Server) handleEstablishSession(c *gin.Context) {
	var request model.SessionEstablishRequest
	if err := bindAndValidate(c, &request); err != nil {
		respondError(c, err)
		return
	}

	response, err := server.sessions.EstablishSession(c.Request.Context(), request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ---------------------------------------------------------------------------
// UPF
// ---------------------------------------------------------------------------

func (server *Server) handleCounters(c *gin.Context) {
	states, err := server.simulator.Counters(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, states)
}

func (server *Server) handleSimulateTraffic(c *gin.Context) {
	var request model.TrafficRequest
	// An empty body means "use the fixed synthetic defaults".
	if err := c.ShouldBindJSON(&request); err != nil && err != io.EOF {
		respondError(c, nferr.Validation("invalid JSON body: %v", err))
		return
	}

	if err := server.simulator.SimulateTraffic(c.Request.Context(), c.Param("sessionId"), request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.StatusResponse{Status: "ok"})
}
