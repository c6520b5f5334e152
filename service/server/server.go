// Package server exposes the read-side HTTP API over the ledgers plus the
// operational endpoints (health, Prometheus metrics).
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Taksh113/tokenwise-popcat/service/db"
	"github.com/Taksh113/tokenwise-popcat/service/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is the persistence surface the HTTP handlers need.
type Store interface {
	db.MovementStore
	db.HolderStore
}

// Server represents the HTTP server for the tracking service.
type Server struct {
	addr    string
	store   Store
	metrics *metrics.Metrics
	logger  *slog.Logger
	server  *http.Server
}

// New creates a new HTTP server with the given dependencies.
// The metrics is optional - if nil, the metrics endpoint won't be available.
func New(addr string, store Store, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Start starts the HTTP server. Blocks until Shutdown is called.
func (s *Server) Start() error {
	mux := http.NewServeMux()

	withMetrics := func(name string, h http.Handler) http.Handler {
		return metrics.HTTPMetricsMiddleware(s.metrics, name)(h)
	}

	mux.Handle("GET /api/v1/holders", withMetrics("/api/v1/holders", handleListHolders(s.store, s.logger)))
	mux.Handle("GET /api/v1/movements", withMetrics("/api/v1/movements", handleListMovements(s.store, s.logger)))
	mux.Handle("GET /api/v1/movements/{signature}", withMetrics("/api/v1/movements/{signature}", handleGetMovement(s.store, s.logger)))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.Handler())
		s.logger.Info("Prometheus metrics endpoint enabled")
	}

	handler := corsMiddleware(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// corsMiddleware adds CORS headers to all responses and handles OPTIONS
// preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
