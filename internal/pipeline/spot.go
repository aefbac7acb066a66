package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// SpotTracker polls the underlying index price and caches the latest value
// for the recompute path. Each poll also mirrors the price into the store.
type SpotTracker struct {
	source   domain.CatalogSource
	store    domain.SnapshotStore
	currency string
	price    atomic.Uint64 // float64 bits
	logger   *slog.Logger
}

func NewSpotTracker(source domain.CatalogSource, store domain.SnapshotStore, currency string, logger *slog.Logger) *SpotTracker {
	return &SpotTracker{
		source:   source,
		store:    store,
		currency: currency,
		logger:   logger.With(slog.String("component", "spot")),
	}
}

// Price returns the most recently observed index price, 0 before the first
// successful poll.
func (s *SpotTracker) Price() float64 {
	return math.Float64frombits(s.price.Load())
}

// Poll fetches the index price once and caches it.
func (s *SpotTracker) Poll(ctx context.Context) error {
	price, err := s.source.FetchIndexPrice(ctx, s.currency)
	if err != nil {
		return fmt.Errorf("pipeline: spot poll: %w", err)
	}
	s.price.Store(math.Float64bits(price))
	if err := s.store.SetSpotPrice(ctx, price); err != nil {
		s.logger.Warn("failed to persist spot price", slog.Any("error", err))
	}
	return nil
}

// Run polls on the given interval until the context ends. A failed poll
// keeps the previous price.
func (s *SpotTracker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Warn("spot poll failed, keeping previous price",
					slog.Any("error", err))
			}
		}
	}
}
