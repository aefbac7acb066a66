// Package gex turns dealer inventory into a per-strike gamma exposure
// curve with a zero-gamma flip price.
package gex

import (
	"log/slog"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hedgeiq/gexstream/internal/domain"
)

const hoursPerDay = 24

// InstrumentLookup resolves instrument names to their static and market
// data. The catalog implements it.
type InstrumentLookup interface {
	Instrument(name string) (domain.Instrument, bool)
}

// Config holds exposure computation knobs.
type Config struct {
	RiskFreeRate float64
	MinDTE       time.Duration // contracts closer to expiry are excluded
	FlipBand     float64       // flip search band as a fraction of spot, 0 = unbounded
	TimeWeighted bool          // weight contributions by 1/sqrt(DTE days)
	MinPosition  float64       // positions below this magnitude are ignored
}

// Engine computes immutable exposure snapshots. Sequence numbers are
// monotonic for the life of the engine.
type Engine struct {
	cfg    Config
	seq    atomic.Uint64
	logger *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.MinPosition <= 0 {
		cfg.MinPosition = 1e-9
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "gex")),
	}
}

// Compute builds a snapshot from the current dealer positions. Instruments
// with no catalog entry or no usable mark IV are excluded with a warning;
// a data gap must never fabricate exposure. Each contribution is the
// Black-Scholes gamma of the instrument scaled by dealer position, contract
// multiplier and spot squared, expressed per 1% spot move.
func (e *Engine) Compute(positions map[string]float64, lookup InstrumentLookup, spot float64, tradeCount uint64, now time.Time) *domain.GEXSnapshot {
	type bucket struct {
		gex      float64
		position float64
	}
	buckets := make(map[float64]*bucket)

	names := make([]string, 0, len(positions))
	for name := range positions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pos := positions[name]
		if math.Abs(pos) < e.cfg.MinPosition {
			continue
		}
		inst, ok := lookup.Instrument(name)
		if !ok {
			e.logger.Warn("position held in unknown instrument, excluded",
				slog.String("instrument", name),
				slog.Float64("position", pos))
			continue
		}
		dte := inst.Expiry.Sub(now)
		if dte < e.cfg.MinDTE {
			continue
		}
		if inst.MarkIV <= 0 {
			e.logger.Warn("no mark IV for instrument, excluded",
				slog.String("instrument", name),
				slog.Float64("position", pos))
			continue
		}

		tYears := dte.Hours() / (hoursPerDay * 365)
		gamma := Gamma(spot, inst.Strike, tYears, e.cfg.RiskFreeRate, inst.MarkIV)
		if gamma == 0 {
			continue
		}
		// Dollar gamma per 1% spot move. The sign comes entirely from the
		// dealer position; calls and puts contribute alike.
		contrib := gamma * pos * inst.Multiplier * spot * spot * 0.01
		if e.cfg.TimeWeighted {
			dteDays := dte.Hours() / hoursPerDay
			contrib /= math.Sqrt(dteDays)
		}

		b := buckets[inst.Strike]
		if b == nil {
			b = &bucket{}
			buckets[inst.Strike] = b
		}
		b.gex += contrib
		b.position += pos
	}

	strikes := make([]float64, 0, len(buckets))
	for k := range buckets {
		strikes = append(strikes, k)
	}
	sort.Float64s(strikes)

	snap := &domain.GEXSnapshot{
		ID:         uuid.NewString(),
		Seq:        e.seq.Add(1),
		Timestamp:  now,
		SpotPrice:  spot,
		Strikes:    make([]domain.StrikeGamma, 0, len(strikes)),
		TradeCount: tradeCount,
	}
	for _, k := range strikes {
		b := buckets[k]
		snap.Strikes = append(snap.Strikes, domain.StrikeGamma{
			Strike:   k,
			GEX:      b.gex,
			Position: b.position,
		})
		snap.NetGEX += b.gex
	}

	snap.FlipPrice = e.flipPrice(snap.Strikes, spot)
	snap.Regime = regime(snap.NetGEX)
	snap.MaxSupport, snap.MaxResistance = extremes(snap.Strikes)
	return snap
}

// flipPrice finds where cumulative gamma exposure crosses zero. The sum
// accumulates over every strike in ascending order so exposure far below
// spot still shifts the curve; the band only restricts where a crossing is
// reported. FlipBand 0 reports crossings anywhere. The crossing is located
// by linear interpolation; nil means no crossing in range.
func (e *Engine) flipPrice(strikes []domain.StrikeGamma, spot float64) *float64 {
	if len(strikes) < 2 {
		return nil
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if e.cfg.FlipBand > 0 {
		lo, hi = spot*(1-e.cfg.FlipBand), spot*(1+e.cfg.FlipBand)
	}
	inBand := func(price float64) bool { return price >= lo && price <= hi }

	cum := make([]float64, len(strikes))
	running := 0.0
	for i, s := range strikes {
		running += s.GEX
		cum[i] = running
	}
	for i := 0; i < len(cum)-1; i++ {
		a, b := cum[i], cum[i+1]
		if a == 0 {
			if flip := strikes[i].Strike; inBand(flip) {
				return &flip
			}
			continue
		}
		if (a < 0) == (b < 0) || b == a {
			continue
		}
		frac := a / (a - b)
		flip := strikes[i].Strike + frac*(strikes[i+1].Strike-strikes[i].Strike)
		if inBand(flip) {
			return &flip
		}
	}
	if last := cum[len(cum)-1]; last == 0 {
		if flip := strikes[len(strikes)-1].Strike; inBand(flip) {
			return &flip
		}
	}
	return nil
}

func regime(netGEX float64) domain.Regime {
	switch {
	case netGEX > 0:
		return domain.RegimePositive
	case netGEX < 0:
		return domain.RegimeNegative
	default:
		return domain.RegimeFlat
	}
}

// extremes returns the strike buckets with the most positive and most
// negative exposure. Positive dealer gamma pins price (support), negative
// gamma amplifies moves (resistance).
func extremes(strikes []domain.StrikeGamma) (support, resistance domain.StrikeGamma) {
	for _, s := range strikes {
		if s.GEX > support.GEX {
			support = s
		}
		if s.GEX < resistance.GEX {
			resistance = s
		}
	}
	return support, resistance
}
