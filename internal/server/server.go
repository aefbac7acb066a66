// Package server exposes the read-only HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hedgeiq/gexstream/internal/config"
	"github.com/hedgeiq/gexstream/internal/domain"
	"github.com/hedgeiq/gexstream/internal/server/handler"
	"github.com/hedgeiq/gexstream/internal/server/middleware"
)

const shutdownGrace = 10 * time.Second

// Server wraps the http.Server with route setup and graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds the API server. feed and degraded may be nil depending on the
// run mode.
func New(
	cfg config.ServerConfig,
	staleAfter time.Duration,
	store domain.SnapshotStore,
	feed handler.FeedStatus,
	degraded handler.DegradedReporter,
	logger *slog.Logger,
) *Server {
	apiLogger := logger.With(slog.String("component", "server"))

	gexHandler := handler.NewGEXHandler(store, staleAfter, logger)
	healthHandler := handler.NewHealthHandler(store, feed, degraded)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/gex", gexHandler.Snapshot)
	mux.HandleFunc("GET /api/gex/flip", gexHandler.Flip)
	mux.HandleFunc("GET /api/positions", gexHandler.Positions)
	mux.HandleFunc("GET /api/positions/{instrument}", gexHandler.Position)
	mux.HandleFunc("GET /api/health", healthHandler.Health)

	var root http.Handler = mux
	root = middleware.CORS(cfg.CORSOrigins)(root)
	root = middleware.Logging(apiLogger)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           root,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: apiLogger,
	}
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	}
}
