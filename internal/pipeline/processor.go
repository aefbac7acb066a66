// Package pipeline connects the trade feed to inventory, exposure
// computation and the snapshot store.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
	"github.com/hedgeiq/gexstream/internal/gex"
	"github.com/hedgeiq/gexstream/internal/inventory"
)

// ProcessorConfig holds the recompute policy: a snapshot is recomputed
// after TradeThreshold applied trades or Interval elapsed with pending
// trades, whichever comes first.
type ProcessorConfig struct {
	TradeThreshold int
	Interval       time.Duration
}

// Processor is the single writer of dealer inventory. It drains the feed
// channel in order, journals trades when a journal is configured, and
// publishes recomputed snapshots.
type Processor struct {
	cfg     ProcessorConfig
	trades  <-chan domain.Trade
	tracker *inventory.Tracker
	engine  *gex.Engine
	lookup  gex.InstrumentLookup
	store   domain.SnapshotStore
	journal domain.TradeJournal // nil when journaling is disabled
	spot    func() float64
	logger  *slog.Logger
}

func NewProcessor(
	cfg ProcessorConfig,
	trades <-chan domain.Trade,
	tracker *inventory.Tracker,
	engine *gex.Engine,
	lookup gex.InstrumentLookup,
	store domain.SnapshotStore,
	journal domain.TradeJournal,
	spot func() float64,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		cfg:     cfg,
		trades:  trades,
		tracker: tracker,
		engine:  engine,
		lookup:  lookup,
		store:   store,
		journal: journal,
		spot:    spot,
		logger:  logger.With(slog.String("component", "processor")),
	}
}

// Run consumes trades until the context is cancelled or the feed channel
// closes. On shutdown, already-buffered trades are drained and a final
// snapshot is published so no applied trade is lost.
func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	pending := 0
	for {
		select {
		case <-ctx.Done():
			p.drain(context.WithoutCancel(ctx), &pending)
			p.flush(context.WithoutCancel(ctx), &pending)
			return nil
		case trade, ok := <-p.trades:
			if !ok {
				p.flush(context.WithoutCancel(ctx), &pending)
				return nil
			}
			p.apply(ctx, trade, &pending)
			if pending >= p.cfg.TradeThreshold {
				p.flush(ctx, &pending)
			}
		case <-ticker.C:
			p.flush(ctx, &pending)
		}
	}
}

func (p *Processor) apply(ctx context.Context, trade domain.Trade, pending *int) {
	pos, err := p.tracker.Apply(trade)
	if err != nil {
		p.logger.Warn("trade rejected",
			slog.String("trade_id", trade.ID),
			slog.Any("error", err))
		return
	}
	*pending++

	if p.journal != nil {
		if err := p.journal.Append(ctx, []domain.Trade{trade}); err != nil {
			p.logger.Warn("journal append failed",
				slog.String("trade_id", trade.ID),
				slog.Any("error", err))
		}
	}
	p.logger.Debug("trade applied",
		slog.String("instrument", trade.Instrument),
		slog.String("taker_side", string(trade.TakerSide)),
		slog.Float64("size", trade.Size),
		slog.Float64("dealer_position", pos))
}

// flush recomputes and publishes when trades are pending. A zero spot means
// the index price has not been observed yet; the recompute is skipped and
// the pending trades roll into the next flush.
func (p *Processor) flush(ctx context.Context, pending *int) {
	if *pending == 0 {
		return
	}
	spot := p.spot()
	if spot <= 0 {
		p.logger.Warn("no spot price yet, deferring recompute",
			slog.Int("pending_trades", *pending))
		return
	}

	snap := p.engine.Compute(p.tracker.Positions(), p.lookup, spot, p.tracker.TradeCount(), time.Now().UTC())
	if err := p.store.PutSnapshot(ctx, snap); err != nil {
		p.logger.Error("snapshot publish failed",
			slog.Uint64("seq", snap.Seq),
			slog.Any("error", err))
		return
	}
	if err := p.store.PutPositions(ctx, p.tracker.Positions()); err != nil {
		p.logger.Warn("position persist failed", slog.Any("error", err))
	}
	*pending = 0

	attrs := []any{
		slog.Uint64("seq", snap.Seq),
		slog.String("regime", string(snap.Regime)),
		slog.Float64("net_gex", snap.NetGEX),
		slog.Int("strikes", len(snap.Strikes)),
		slog.Float64("spot", spot),
	}
	if snap.FlipPrice != nil {
		attrs = append(attrs, slog.Float64("flip", *snap.FlipPrice))
	}
	p.logger.Info("snapshot published", attrs...)
}

// drain applies whatever the feed already buffered without blocking.
func (p *Processor) drain(ctx context.Context, pending *int) {
	for {
		select {
		case trade, ok := <-p.trades:
			if !ok {
				return
			}
			p.apply(ctx, trade, pending)
		default:
			return
		}
	}
}
