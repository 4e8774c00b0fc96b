// Package server exposes the dispatcher over an HTTP JSON API.
//
//	POST /v1/dispatch     one operation on one matrix
//	POST /v1/batch        many independent operations, run concurrently
//	GET  /v1/operations   supported operation names
//	GET  /metrics         prometheus exposition
//	GET  /health, /ready  liveness and readiness
//
// When authentication is configured the /v1 routes require either an
// "Authorization: Bearer <jwt>" header or an X-API-Key header.
//
// Permutations and separators are returned 1-based and partition labels
// 0-based, matching the positional gateway.
package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-graphpart/pkg/auth"
	"github.com/dd0wney/cluso-graphpart/pkg/batch"
	"github.com/dd0wney/cluso-graphpart/pkg/dispatch"
	"github.com/dd0wney/cluso-graphpart/pkg/health"
	"github.com/dd0wney/cluso-graphpart/pkg/logging"
	"github.com/dd0wney/cluso-graphpart/pkg/metrics"
)

// DefaultMaxBodyBytes bounds request bodies when Config leaves it zero.
const DefaultMaxBodyBytes = 64 << 20

// Config wires the server's collaborators.
type Config struct {
	MaxBodyBytes int64
	Logger       logging.Logger
	Metrics      *metrics.Registry
	// Auth guards the /v1 routes. Nil or disabled leaves them open.
	Auth *auth.Authenticator
}

// Server handles API requests.
type Server struct {
	dispatcher   *dispatch.Dispatcher
	runner       *batch.Runner
	logger       logging.Logger
	metrics      *metrics.Registry
	health       *health.Checker
	auth         *auth.Authenticator
	maxBodyBytes int64
	startTime    time.Time
	handler      http.Handler
}

// New builds a server. runner executes batch requests.
func New(d *dispatch.Dispatcher, runner *batch.Runner, cfg Config) *Server {
	s := &Server{
		dispatcher:   d,
		runner:       runner,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		health:       health.NewChecker(),
		auth:         cfg.Auth,
		maxBodyBytes: cfg.MaxBodyBytes,
		startTime:    time.Now(),
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	s.logger = s.logger.With(logging.Component("server"))
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = DefaultMaxBodyBytes
	}

	s.health.Register(health.Liveness, "memory", health.MemoryCheck(health.RuntimeMemory))
	s.health.Register(health.Readiness, "engine", health.EngineCheck(d.Engine(), 5*time.Second))
	s.handler = s.routes()
	return s
}

// Health returns the checker so callers can add checks, such as draining.
func (s *Server) Health() *health.Checker {
	return s.health
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	api := func(h http.HandlerFunc) http.Handler {
		return s.authMiddleware(s.bodySizeLimitMiddleware(h))
	}
	mux.Handle("POST /v1/dispatch", api(s.handleDispatch))
	mux.Handle("POST /v1/batch", api(s.handleBatch))
	mux.Handle("GET /v1/operations", api(s.handleOperations))

	mux.Handle("GET /metrics", s.metricsHandler())
	mux.Handle("GET /health", s.health.Handler(health.Liveness))
	mux.Handle("GET /ready", s.health.Handler(health.Readiness))

	var h http.Handler = mux
	h = s.metricsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	h = s.panicRecoveryMiddleware(h)
	return h
}

func (s *Server) metricsHandler() http.Handler {
	exposition := promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.UpdateSystemMetrics(s.startTime)
		exposition.ServeHTTP(w, r)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
