package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mcpguard/toolcall/internal/config"
	"github.com/mcpguard/toolcall/internal/dispatch"
	"github.com/mcpguard/toolcall/internal/mcp"
	"github.com/mcpguard/toolcall/internal/tool"
)

// maxBodyBytes caps the size of a tool-call request body.
const maxBodyBytes = 1 << 20

type API struct {
	config     *config.Config
	registry   *tool.Registry
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
}

func NewAPI(cfg *config.Config, registry *tool.Registry, dispatcher *dispatch.Dispatcher, logger *slog.Logger) *API {
	return &API{
		config:     cfg,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Router returns the HTTP routes served by the API.
func (api *API) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(api.logRequests)

	router.HandleFunc("/health", api.Health).Methods(http.MethodGet)
	router.HandleFunc("/mcp/tools", api.ListTools).Methods(http.MethodGet)
	router.HandleFunc(mcp.CallPath, api.HandleCall).Methods(http.MethodPost)
	return router
}

func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"server_id": api.config.ServerID,
	})
}

type toolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

func (api *API) ListTools(w http.ResponseWriter, r *http.Request) {
	handlers := api.registry.List()
	tools := make([]toolInfo, 0, len(handlers))
	for _, h := range handlers {
		tools = append(tools, toolInfo{
			Name:        h.Name(),
			Description: h.Description(),
			Parameters:  h.Parameters(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
}

// HandleCall serves POST /mcp/call.
func (api *API) HandleCall(w http.ResponseWriter, r *http.Request) {
	// Read the request body, refusing anything over the size cap
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		api.writeFault(w, r, mcp.Malformed(mcp.StatusBadRequest, err))
		return
	}

	// Decode, validate and run the tool; faults carry their own status
	resp, fault := api.dispatcher.HandleBody(r.Context(), body)
	if fault != nil {
		api.writeFault(w, r, fault)
		return
	}

	api.logger.Debug("tool call dispatched", "path", r.URL.Path, "request_id", resp.RequestID)
	writeJSON(w, http.StatusOK, resp)
}

func (api *API) writeFault(w http.ResponseWriter, r *http.Request, fault *mcp.Fault) {
	// Server faults are logged as errors, client mistakes only as info
	if fault.Status >= http.StatusInternalServerError {
		api.logger.Error("tool call failed", "path", r.URL.Path, "status", fault.Status, "detail", fault.Detail)
	} else {
		api.logger.Info("tool call rejected", "path", r.URL.Path, "status", fault.Status, "detail", fault.Detail)
	}
	writeJSON(w, fault.Status, mcp.ErrorResponse{Detail: fault.Detail})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (api *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		api.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}
