package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hedgeiq/gexstream/internal/catalog"
	"github.com/hedgeiq/gexstream/internal/config"
	"github.com/hedgeiq/gexstream/internal/domain"
	"github.com/hedgeiq/gexstream/internal/gex"
	"github.com/hedgeiq/gexstream/internal/inventory"
	"github.com/hedgeiq/gexstream/internal/platform/deribit"
	"github.com/hedgeiq/gexstream/internal/store"
	"github.com/hedgeiq/gexstream/internal/store/memory"
	"github.com/hedgeiq/gexstream/internal/store/postgres"
	redisstore "github.com/hedgeiq/gexstream/internal/store/redis"
)

// Dependencies holds everything the run modes share.
type Dependencies struct {
	Store    domain.SnapshotStore
	Failover *store.Failover // nil with the memory backend
	Journal  domain.TradeJournal
	Source   *deribit.Client
	Catalog  *catalog.Catalog
	Tracker  *inventory.Tracker
	Engine   *gex.Engine

	closers []func()
}

// Close releases owned connections in reverse construction order.
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// wire builds the dependency graph from configuration.
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	switch cfg.Store.Backend {
	case "memory":
		deps.Store = memory.New()
	case "redis":
		client, err := redisstore.NewClient(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.closers = append(deps.closers, func() { _ = client.Close() })
		deps.Failover = store.NewFailover(redisstore.NewStore(client), memory.New(), logger)
		deps.Store = deps.Failover
	default:
		return nil, fmt.Errorf("app: unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Journal.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Journal)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.closers = append(deps.closers, pool.Close)
		if err := postgres.RunMigrations(ctx, pool, logger); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		deps.Journal = postgres.NewJournal(pool)
	}

	deps.Source = deribit.NewClient(cfg.Deribit.RestURL, logger)
	deps.Catalog = catalog.New(deps.Source, cfg.Deribit.Underlying, cfg.GEX.ExpiryWindowDays, logger)
	deps.Tracker = inventory.NewTracker(logger)
	deps.Engine = gex.NewEngine(gex.Config{
		RiskFreeRate: cfg.GEX.RiskFreeRate,
		MinDTE:       time.Duration(cfg.GEX.MinDTEHours * float64(time.Hour)),
		FlipBand:     cfg.GEX.FlipSearchBand,
		TimeWeighted: cfg.GEX.TimeWeighted,
	}, logger)

	return deps, nil
}
