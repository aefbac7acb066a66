// Package catalog maintains the live option chain for one underlying:
// instrument static data plus mark IV and open interest, refreshed
// periodically from the venue's reference endpoints.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// Catalog is a read-mostly index of instruments by name. Refresh replaces
// the whole index at once; a failed refresh keeps the previous chain.
type Catalog struct {
	source   domain.CatalogSource
	currency string
	horizon  time.Duration // expiries beyond now+horizon are dropped

	mu     sync.RWMutex
	byName map[string]domain.Instrument

	logger *slog.Logger
}

func New(source domain.CatalogSource, currency string, horizonDays int, logger *slog.Logger) *Catalog {
	return &Catalog{
		source:   source,
		currency: currency,
		horizon:  time.Duration(horizonDays) * 24 * time.Hour,
		byName:   make(map[string]domain.Instrument),
		logger:   logger.With(slog.String("component", "catalog")),
	}
}

// Refresh fetches the chain and swaps it in wholesale.
func (c *Catalog) Refresh(ctx context.Context) error {
	instruments, err := c.source.FetchInstruments(ctx, c.currency)
	if err != nil {
		return fmt.Errorf("catalog: refresh: %w", err)
	}
	cutoff := time.Now().Add(c.horizon)
	next := make(map[string]domain.Instrument, len(instruments))
	for _, inst := range instruments {
		if c.horizon > 0 && inst.Expiry.After(cutoff) {
			continue
		}
		next[inst.Name] = inst
	}

	c.mu.Lock()
	c.byName = next
	c.mu.Unlock()

	c.logger.Info("catalog refreshed",
		slog.String("currency", c.currency),
		slog.Int("instruments", len(next)))
	return nil
}

// Replace installs an explicit chain, bypassing the source.
func (c *Catalog) Replace(instruments []domain.Instrument) {
	next := make(map[string]domain.Instrument, len(instruments))
	for _, inst := range instruments {
		next[inst.Name] = inst
	}
	c.mu.Lock()
	c.byName = next
	c.mu.Unlock()
}

// Instrument looks up one instrument by name.
func (c *Catalog) Instrument(name string) (domain.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.byName[name]
	return inst, ok
}

// Len returns the number of instruments currently in the chain.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byName)
}

// RunRefresh refreshes on the given interval until the context ends.
// Failures are logged and the stale chain stays in service.
func (c *Catalog) RunRefresh(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				c.logger.Warn("catalog refresh failed, keeping previous chain",
					slog.Any("error", err))
			}
		}
	}
}
