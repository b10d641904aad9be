// Package server exposes the tutoring orchestrator over an HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edumentor-ai/edumentor/pkg/agent"
	"github.com/edumentor-ai/edumentor/pkg/config"
	"github.com/edumentor-ai/edumentor/pkg/logger"
	"github.com/edumentor-ai/edumentor/pkg/observability"
)

// Server is the HTTP API around the orchestrator.
type Server struct {
	cfg    config.ServerConfig
	obsCfg *observability.Config
	orch   *agent.Orchestrator
	http   *http.Server
	logger *slog.Logger
}

// New builds the server. obsCfg may be nil, disabling /metrics.
func New(cfg config.ServerConfig, obsCfg *observability.Config, orch *agent.Orchestrator) *Server {
	s := &Server{
		cfg:    cfg,
		obsCfg: obsCfg,
		orch:   orch,
		logger: logger.GetLogger().With("component", "server"),
	}

	s.http = &http.Server{
		Addr:         cfg.Address(),
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(cfg.ReadTimeout),
		WriteTimeout: time.Duration(cfg.WriteTimeout),
	}
	return s
}

// Router assembles the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(observability.HTTPMiddleware(
		observability.GetTracer("edumentor.server"),
		observability.GetGlobalMetrics(),
	))

	r.Get("/healthz", s.handleHealth)

	if s.obsCfg != nil && s.obsCfg.Metrics.Enabled {
		endpoint := s.obsCfg.Metrics.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.Handle(endpoint, promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", s.handleSessionStats)
			r.Delete("/", s.handleEndSession)
			r.Post("/messages", s.handleMessage)
		})
		r.Route("/students/{studentID}", func(r chi.Router) {
			r.Get("/progress", s.handleProgress)
			r.Get("/memory", s.handleMemory)
		})
	})

	return r
}

// Start runs the server until ctx is canceled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.cfg.Address())
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeout))
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
