package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/hedgeiq/gexstream/internal/feed"
	"github.com/hedgeiq/gexstream/internal/pipeline"
	"github.com/hedgeiq/gexstream/internal/platform/deribit"
	"github.com/hedgeiq/gexstream/internal/server"
	"github.com/hedgeiq/gexstream/internal/server/handler"
)

// buildFeed constructs the trade feed from configuration.
func (a *App) buildFeed() *feed.Feed {
	return feed.New(feed.Config{
		WS: deribit.WSConfig{
			URL:              a.cfg.Deribit.WsURL,
			ClientID:         a.cfg.Deribit.ClientID,
			ClientSecret:     a.cfg.Deribit.ClientSecret,
			HeartbeatSec:     a.cfg.Deribit.HeartbeatInterval,
			HeartbeatTimeout: a.cfg.Deribit.HeartbeatTimeout.Duration,
			HandshakeTimeout: a.cfg.Deribit.HandshakeTimeout.Duration,
		},
		Underlying:      a.cfg.Deribit.Underlying,
		BufferSize:      a.cfg.Feed.BufferSize,
		DedupWindow:     a.cfg.Feed.DedupWindow,
		ReconnectBase:   a.cfg.Feed.BackoffInitial.Duration,
		ReconnectMax:    a.cfg.Feed.BackoffMax.Duration,
		ReconnectJitter: a.cfg.Feed.BackoffJitter,
		MaxRetries:      a.cfg.Feed.MaxRetries,
	}, a.logger)
}

// buildOrchestrator wires the streaming pipeline around the feed.
func (a *App) buildOrchestrator(deps *Dependencies, fd *feed.Feed) *pipeline.Orchestrator {
	spot := pipeline.NewSpotTracker(deps.Source, deps.Store, a.cfg.Deribit.Underlying, a.logger)
	processor := pipeline.NewProcessor(
		pipeline.ProcessorConfig{
			TradeThreshold: a.cfg.GEX.RecomputeTrades,
			Interval:       a.cfg.GEX.RecomputeInterval.Duration,
		},
		fd.Trades(),
		deps.Tracker,
		deps.Engine,
		deps.Catalog,
		deps.Store,
		deps.Journal,
		spot.Price,
		a.logger,
	)
	return pipeline.NewOrchestrator(
		pipeline.OrchestratorConfig{
			CatalogRefresh: a.cfg.Catalog.RefreshInterval.Duration,
			SpotPoll:       a.cfg.Spot.PollInterval.Duration,
		},
		deps.Catalog, spot, fd, processor, deps.Store, deps.Journal, deps.Tracker,
		a.logger,
	)
}

func (a *App) buildServer(deps *Dependencies, fd *feed.Feed) *server.Server {
	var feedStatus handler.FeedStatus
	if fd != nil {
		feedStatus = fd
	}
	var degraded handler.DegradedReporter
	if deps.Failover != nil {
		degraded = deps.Failover
	}
	return server.New(
		a.cfg.Server,
		a.cfg.GEX.StalenessBound.Duration,
		deps.Store,
		feedStatus,
		degraded,
		a.logger,
	)
}

// runStream ingests trades and publishes snapshots without an HTTP API.
func (a *App) runStream(ctx context.Context, deps *Dependencies) error {
	fd := a.buildFeed()
	return a.buildOrchestrator(deps, fd).Run(ctx)
}

// runServe serves the HTTP API over already-persisted state.
func (a *App) runServe(ctx context.Context, deps *Dependencies) error {
	return a.buildServer(deps, nil).Run(ctx)
}

// runFull runs the pipeline and, unless the server is disabled, the HTTP
// API alongside it.
func (a *App) runFull(ctx context.Context, deps *Dependencies) error {
	fd := a.buildFeed()
	orch := a.buildOrchestrator(deps, fd)
	if !a.cfg.Server.Enabled {
		a.logger.Info("http server disabled, running pipeline only")
		return orch.Run(ctx)
	}
	srv := a.buildServer(deps, fd)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}
