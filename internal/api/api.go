// Package api serves the webhook ingress and the operational endpoints.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vmunix/filtarr/internal/webhook"
)

// DefaultMaxBodyBytes caps webhook bodies.
const DefaultMaxBodyBytes = 1 << 20

// Config holds API server configuration.
type Config struct {
	// Sources lists the managers whose webhook routes are registered.
	Sources []webhook.Source
	// APIKey, when set, must accompany every webhook.
	APIKey string
	// PendingTTL bounds how long a grab is remembered as in flight.
	PendingTTL   time.Duration
	MaxBodyBytes int64
}

// Server is the HTTP API server.
type Server struct {
	deps    ServerDeps
	cfg     Config
	pending *cache.Cache
	log     *slog.Logger
}

// New creates an API server.
func New(cfg Config, deps ServerDeps, log *slog.Logger) (*Server, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingDependency, err)
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = time.Hour
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{
		deps:    deps,
		cfg:     cfg,
		pending: cache.New(cfg.PendingTTL, 10*time.Minute),
		log:     log.With("component", "api"),
	}, nil
}

// RegisterRoutes registers API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Webhooks
	for _, src := range s.cfg.Sources {
		mux.HandleFunc("POST /"+string(src), s.requireAPIKey(s.handleWebhook(src)))
	}

	// System
	mux.HandleFunc("GET /health", s.health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /events", s.requireAPIKey(s.listEvents))
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return RequestID(logRequests(mux, s.log))
}

type healthResponse struct {
	Status string `json:"status"`
	Queued int    `json:"queued"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Queued: s.deps.Queue.Len()})
}

// Error response
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, errorResponse{Error: message, Code: errCode})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// queryInt extracts an optional integer from query string.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
