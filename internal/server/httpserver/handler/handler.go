package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yndnr/respd-go/internal/infra/buildinfo"
)

// Options configures a Handler.
type Options struct {
	Logger  *slog.Logger
	Ready   func(context.Context) error
	Build   buildinfo.Info
	Metrics http.Handler
}

// Handler routes the admin endpoints.
type Handler struct {
	logger  *slog.Logger
	ready   func(context.Context) error
	build   buildinfo.Info
	metrics http.Handler
	mux     *http.ServeMux
}

// New creates a new Handler.
func New(opts Options) *Handler {
	h := &Handler{
		logger:  opts.Logger,
		ready:   opts.Ready,
		build:   opts.Build,
		metrics: opts.Metrics,
		mux:     http.NewServeMux(),
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /version", h.handleVersion)
	if h.metrics != nil {
		h.mux.Handle("GET /metrics", h.metrics)
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(w)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err, "path", r.URL.Path)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := getRequestID(w)
	response := NewErrorResponse(requestID, code, message, nil)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err, "path", r.URL.Path)
	}
}

// getRequestID returns the id the RequestID middleware put on the response.
func getRequestID(w http.ResponseWriter) string {
	return w.Header().Get("X-Request-ID")
}
