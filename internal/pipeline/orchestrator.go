package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hedgeiq/gexstream/internal/catalog"
	"github.com/hedgeiq/gexstream/internal/domain"
	"github.com/hedgeiq/gexstream/internal/feed"
	"github.com/hedgeiq/gexstream/internal/inventory"
)

// OrchestratorConfig holds the background loop intervals.
type OrchestratorConfig struct {
	CatalogRefresh time.Duration
	SpotPoll       time.Duration
}

// Orchestrator owns the streaming side of the service: catalog refresh,
// spot polling, the trade feed and the processor, run under one errgroup.
type Orchestrator struct {
	cfg       OrchestratorConfig
	catalog   *catalog.Catalog
	spot      *SpotTracker
	feed      *feed.Feed
	processor *Processor
	store     domain.SnapshotStore
	journal   domain.TradeJournal // nil when journaling is disabled
	tracker   *inventory.Tracker
	logger    *slog.Logger
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	cat *catalog.Catalog,
	spot *SpotTracker,
	fd *feed.Feed,
	processor *Processor,
	store domain.SnapshotStore,
	journal domain.TradeJournal,
	tracker *inventory.Tracker,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		catalog:   cat,
		spot:      spot,
		feed:      fd,
		processor: processor,
		store:     store,
		journal:   journal,
		tracker:   tracker,
		logger:    logger.With(slog.String("component", "orchestrator")),
	}
}

// Run performs startup in order (catalog, spot, inventory restore) and then
// runs the long-lived loops until the context ends or the feed gives up.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.catalog.Refresh(ctx); err != nil {
		return fmt.Errorf("pipeline: initial catalog load: %w", err)
	}
	if err := o.spot.Poll(ctx); err != nil {
		return fmt.Errorf("pipeline: initial spot price: %w", err)
	}
	if err := o.restoreInventory(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.catalog.RunRefresh(ctx, o.cfg.CatalogRefresh)
	})
	g.Go(func() error {
		return o.spot.Run(ctx, o.cfg.SpotPoll)
	})
	g.Go(func() error {
		return o.feed.Run(ctx)
	})
	g.Go(func() error {
		return o.processor.Run(ctx)
	})
	return g.Wait()
}

// restoreInventory seeds the tracker from persisted positions, falling back
// to a journal replay when the store holds nothing.
func (o *Orchestrator) restoreInventory(ctx context.Context) error {
	positions, err := o.store.GetPositions(ctx)
	if err != nil {
		o.logger.Warn("could not load persisted positions, starting flat",
			slog.Any("error", err))
	} else if len(positions) > 0 {
		o.tracker.Restore(positions)
		return nil
	}

	if o.journal == nil {
		return nil
	}
	o.logger.Info("replaying trade journal")
	replayed := 0
	err = o.journal.Replay(ctx, func(t domain.Trade) error {
		if _, aerr := o.tracker.Apply(t); aerr != nil {
			o.logger.Warn("skipping bad journaled trade",
				slog.String("trade_id", t.ID),
				slog.Any("error", aerr))
			return nil
		}
		replayed++
		return nil
	})
	if err != nil {
		return fmt.Errorf("pipeline: journal replay: %w", err)
	}
	o.logger.Info("journal replay complete", slog.Int("trades", replayed))
	return nil
}
