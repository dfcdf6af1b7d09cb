package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-arb/internal/taskstore"
	"github.com/mselser95/polymarket-arb/pkg/eventbus"
	"github.com/mselser95/polymarket-arb/pkg/healthprobe"
)

// Server provides HTTP endpoints for metrics, health checks, and the
// dashboard event stream.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
}

// Config holds server configuration. Bus is optional: with it nil, the
// server still serves /metrics, /health and /ready, which is all
// cmd/track_balance.go needs.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Bus           *eventbus.Bus
	Store         *taskstore.Store // optional, enables /api/tasks
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	// Dashboard event stream (if a bus was provided).
	if cfg.Bus != nil {
		streamHandler := NewStreamHandler(cfg.Bus, cfg.Logger)
		r.Get("/api/stream", streamHandler.HandleStream)
	}

	// Operator approval / task admin surface (if a store was provided).
	if cfg.Store != nil {
		taskHandler := NewTaskHandler(cfg.Store, cfg.Logger)
		r.Get("/api/tasks", taskHandler.HandleList)
		r.Post("/api/tasks", taskHandler.HandleCreate)
		r.Post("/api/tasks/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
			taskHandler.HandleCancel(w, r, chi.URLParam(r, "id"))
		})
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
	}
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
