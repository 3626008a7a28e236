// Package server exposes plan selection over HTTP.
//
// Routes:
//
//	POST /v1/plan?seed=N   select a stack for a JSON or YAML blueprint body
//	GET  /v1/rules         the loaded rules table and its fingerprint
//	GET  /healthz          readiness (also /health/live, /health/ready, /health/startup)
//	GET  /metrics          Prometheus metrics
//
// Plans are cached by (blueprint_hash, seed) in an LRU cache, which is safe
// because a selection is a pure function of the blueprint, the rules table
// and the seed. The server is drained gracefully on Shutdown.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/runeforge/internal/health"
	"github.com/felixgeelhaar/runeforge/internal/log"
	"github.com/felixgeelhaar/runeforge/internal/metrics"
	"github.com/felixgeelhaar/runeforge/internal/plan"
	"github.com/felixgeelhaar/runeforge/internal/planner"
)

// DefaultCacheSize is the number of plans kept when Config.CacheSize is zero.
const DefaultCacheSize = 256

// DefaultMaxBodyBytes bounds blueprint request bodies.
const DefaultMaxBodyBytes = 1 << 20

// Config holds server configuration.
type Config struct {
	// Address is the listen address (e.g., ":8080").
	Address string

	// DefaultSeed is used when a request has no seed parameter.
	DefaultSeed uint64

	// CacheSize is the plan cache capacity. Zero means DefaultCacheSize and
	// a negative value disables the cache.
	CacheSize int

	MaxBodyBytes int64

	// ShutdownTimeout defaults to 30 seconds.
	ShutdownTimeout time.Duration

	// ReadTimeout and WriteTimeout default to 10 seconds, IdleTimeout to 60.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Deps are the collaborators a Server needs. Planner and Probes are
// required.
type Deps struct {
	Planner  *planner.Planner
	Probes   *health.ProbeManager
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *log.Logger
}

type cacheKey struct {
	blueprintHash string
	seed          uint64
}

// Server serves plan selection and health endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	cfg        Config
	cache      *lru.Cache[cacheKey, *plan.StackPlan]
	inShutdown atomic.Bool
}

// New creates a server. It does not start listening.
func New(deps Deps, cfg Config) (*Server, error) {
	if deps.Planner == nil || deps.Probes == nil {
		return nil, fmt.Errorf("server: planner and probes are required")
	}
	if deps.Logger == nil {
		deps.Logger = log.Discard()
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = DefaultCacheSize
	}

	s := &Server{deps: deps, cfg: cfg}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[cacheKey, *plan.StackPlan](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create plan cache: %w", err)
		}
		s.cache = cache
	}

	mux := http.NewServeMux()
	mux.Handle("POST /v1/plan", s.instrument("/v1/plan", s.handlePlan))
	mux.Handle("GET /v1/rules", s.instrument("/v1/rules", s.handleRules))
	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	mux.HandleFunc("GET /health/startup", s.handleStartup)
	mux.HandleFunc("GET /healthz", s.handleReadiness)
	if deps.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.HandlerFor(deps.Gatherer))
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start marks the server initialized and blocks serving requests. It
// returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	s.deps.Probes.MarkInitialized()
	s.deps.Logger.Info("server listening", "addr", s.cfg.Address)
	return s.httpServer.ListenAndServe()
}

// Shutdown fails readiness, stops keep-alives and drains open connections
// for up to ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.deps.Probes.MarkShutdown()
	s.httpServer.SetKeepAlivesEnabled(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// IsShuttingDown returns whether Shutdown has been called.
func (s *Server) IsShuttingDown() bool {
	return s.inShutdown.Load()
}

func (s *Server) writeProbeResponse(w http.ResponseWriter, result *health.ProbeResult, unhealthyStatus int) {
	status := http.StatusOK
	if result.Status == health.StatusUnhealthy {
		status = unhealthyStatus
	}
	writeJSON(w, status, result)
}

// handleLiveness always answers 200 while the process runs.
func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	s.writeProbeResponse(w, s.deps.Probes.CheckLiveness(r.Context()), http.StatusOK)
}

// handleReadiness answers 503 while shutting down or when a check is
// unhealthy.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.writeProbeResponse(w, s.deps.Probes.CheckReadiness(r.Context()), http.StatusServiceUnavailable)
}

// handleStartup answers 503 until Start has been called.
func (s *Server) handleStartup(w http.ResponseWriter, r *http.Request) {
	s.writeProbeResponse(w, s.deps.Probes.CheckStartup(r.Context()), http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to encode response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
