// Package inventory reconstructs net dealer option positions from the
// taker side of public trade prints. A taker buy means the dealer sold
// contracts, a taker sell means the dealer bought them.
package inventory

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// Tracker holds per-instrument dealer positions. Apply is called from a
// single writer goroutine; reads may come from any goroutine.
type Tracker struct {
	mu          sync.RWMutex
	positions   map[string]float64
	volume      map[string]float64
	tradeCount  uint64
	lastApplied time.Time
	logger      *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		positions: make(map[string]float64),
		volume:    make(map[string]float64),
		logger:    logger.With(slog.String("component", "inventory")),
	}
}

// Apply updates the dealer position for the trade's instrument and returns
// the new position. Trades with non-positive size are rejected.
func (t *Tracker) Apply(trade domain.Trade) (float64, error) {
	if trade.Size <= 0 {
		return 0, fmt.Errorf("inventory: apply %s: %w: size %v",
			trade.Instrument, domain.ErrInvalidTrade, trade.Size)
	}

	delta := trade.Size
	if trade.TakerSide == domain.Buy {
		delta = -trade.Size
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[trade.Instrument] += delta
	t.volume[trade.Instrument] += trade.Size
	t.tradeCount++
	t.lastApplied = trade.Timestamp

	pos := t.positions[trade.Instrument]
	if vol := t.volume[trade.Instrument]; math.Abs(pos) > vol+1e-9 {
		// Position magnitude can never exceed total traded volume unless
		// state was corrupted or restored from a mismatched source.
		t.logger.Warn("position exceeds observed volume",
			slog.String("instrument", trade.Instrument),
			slog.Float64("position", pos),
			slog.Float64("volume", vol))
	}
	return pos, nil
}

// Position returns the net dealer position for one instrument.
func (t *Tracker) Position(instrument string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[instrument]
	return pos, ok
}

// Positions returns a copy of all non-zero positions.
func (t *Tracker) Positions() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.positions))
	for name, pos := range t.positions {
		if pos != 0 {
			out[name] = pos
		}
	}
	return out
}

// Restore replaces all positions wholesale, e.g. from a persisted inventory
// hash at startup. Restored positions carry no volume history, so the
// volume bound check does not apply to them.
func (t *Tracker) Restore(positions map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions = make(map[string]float64, len(positions))
	t.volume = make(map[string]float64, len(positions))
	for name, pos := range positions {
		t.positions[name] = pos
		t.volume[name] = math.Abs(pos)
	}
	t.tradeCount = 0
	t.logger.Info("inventory restored", slog.Int("instruments", len(positions)))
}

// TradeCount returns the number of trades applied since start or restore.
func (t *Tracker) TradeCount() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tradeCount
}

// LastApplied returns the exchange timestamp of the most recent trade.
func (t *Tracker) LastApplied() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastApplied
}
