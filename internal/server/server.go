// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/playground-tui/internal/model"
	"github.com/jeranaias/playground-tui/internal/request"
	"github.com/jeranaias/playground-tui/internal/storage"
	"github.com/jeranaias/playground-tui/internal/upstream"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8000"

	// DefaultMaxBodySize bounds a chat request including its files.
	DefaultMaxBodySize = 100 << 20

	// MaxModelsBodySize bounds a POST /models body.
	MaxModelsBodySize = 1 << 20

	// multipartMemory is the part of a multipart form kept in memory.
	multipartMemory = 32 << 20

	// SavedMessage is the POST /models success message.
	SavedMessage = "Saved successfully"

	// ErrorPrefix starts the in-stream report of an upstream failure.
	ErrorPrefix = "Error: "
)

// ============================================================================
// SERVER
// ============================================================================

// Options configures a Server.
type Options struct {
	Addr            string
	AllowedOrigins  []string
	RateLimit       float64
	RateBurst       int
	UpstreamTimeout time.Duration
	MaxBodySize     int64
}

// Server serves the model list and proxies chat turns upstream.
type Server struct {
	opts     Options
	store    storage.ModelStore
	provider upstream.Provider
	logger   *slog.Logger
	router   *http.ServeMux
	server   *http.Server
	started  time.Time

	mu sync.Mutex
}

// New creates a Server. A nil logger discards output.
func New(store storage.ModelStore, provider upstream.Provider, opts Options, logger *slog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultMaxBodySize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		opts:     opts,
		store:    store,
		provider: provider,
		logger:   logger,
		router:   http.NewServeMux(),
		started:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /models", s.handleListModels)
	s.router.HandleFunc("POST /models", s.handleSaveModels)
	s.router.HandleFunc("POST /chat", s.handleChat)
	s.router.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the routes wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(s.logger),
		CORSMiddleware(NewCORSConfig(s.opts.AllowedOrigins)),
		LoggingMiddleware(s.logger),
	}
	if s.opts.RateLimit > 0 {
		middlewares = append(middlewares,
			RateLimitMiddleware(NewRateLimiter(s.opts.RateLimit, s.opts.RateBurst), s.logger))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// MODELS HANDLERS
// ============================================================================

// handleListModels handles GET /models.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Warn("model list unavailable", "error", err)
		list = []model.ModelConfiguration{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

// handleSaveModels handles POST /models.
func (s *Server) handleSaveModels(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxModelsBodySize)

	var list []model.ModelConfiguration
	if err := json.NewDecoder(r.Body).Decode(&list); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, "body must be a list of model configurations")
		return
	}
	if err := storage.Validate(list); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.store.Replace(r.Context(), list); err != nil {
		s.logger.Error("failed to save model list", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to save model list")
		return
	}
	s.logger.Info("model list saved", "entries", len(list))
	s.writeJSON(w, http.StatusOK, map[string]string{"message": SavedMessage})
}

// ============================================================================
// HEALTH HANDLER
// ============================================================================

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.mu.Lock()
	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.logger.Info("server starting", "addr", s.opts.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("server shutting down")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("write response failed", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"detail": message})
}

// requestFields lists form fields POST /chat cannot do without.
var requestFields = []string{
	request.FieldPrompt,
	request.FieldMessages,
	request.FieldModel,
	request.FieldBaseURL,
	request.FieldAPIKey,
}

// missingField returns the first required field absent from values.
func missingField(values map[string][]string) string {
	for _, f := range requestFields {
		if _, ok := values[f]; !ok {
			return f
		}
	}
	return ""
}

func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
