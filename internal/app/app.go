// Package app assembles configuration into a runnable service.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hedgeiq/gexstream/internal/config"
)

// App runs gexstream in one of three modes: stream (pipeline only), serve
// (HTTP API over persisted state) or full (both).
type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run wires dependencies and blocks until the context ends or a component
// fails fatally.
func (a *App) Run(ctx context.Context) error {
	deps, err := wire(ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	a.logger.Info("starting",
		slog.String("mode", a.cfg.Mode),
		slog.String("underlying", a.cfg.Deribit.Underlying),
		slog.String("store_backend", a.cfg.Store.Backend),
		slog.Bool("journal", a.cfg.Journal.Enabled))

	switch a.cfg.Mode {
	case "stream":
		return a.runStream(ctx, deps)
	case "serve":
		return a.runServe(ctx, deps)
	case "full":
		return a.runFull(ctx, deps)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}
