package gex

import (
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

type mapLookup map[string]domain.Instrument

func (m mapLookup) Instrument(name string) (domain.Instrument, bool) {
	inst, ok := m[name]
	return inst, ok
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEngine() *Engine {
	return NewEngine(Config{
		MinDTE:   2 * time.Hour,
		FlipBand: 0.15,
	}, discardLogger())
}

func instrument(name string, strike float64, expiry time.Time, optType domain.OptionType) domain.Instrument {
	return domain.Instrument{
		Name:       name,
		Underlying: "BTC",
		Strike:     strike,
		Expiry:     expiry,
		Type:       optType,
		Multiplier: 1,
		MarkIV:     0.6,
	}
}

func TestComputeSignFollowsDealerPosition(t *testing.T) {
	now := time.Now().UTC()
	expiry := now.Add(30 * 24 * time.Hour)
	lookup := mapLookup{
		"BTC-C-100": instrument("BTC-C-100", 100000, expiry, domain.Call),
		"BTC-P-100": instrument("BTC-P-100", 100000, expiry, domain.Put),
	}
	e := testEngine()

	short := e.Compute(map[string]float64{"BTC-C-100": -10}, lookup, 100000, 1, now)
	if short.NetGEX >= 0 {
		t.Errorf("short dealer book net GEX = %v, want negative", short.NetGEX)
	}
	if short.Regime != domain.RegimeNegative {
		t.Errorf("regime = %v, want negative", short.Regime)
	}

	// a put held long contributes positive gamma just like a call
	long := e.Compute(map[string]float64{"BTC-P-100": 10}, lookup, 100000, 2, now)
	if long.NetGEX <= 0 {
		t.Errorf("long dealer book net GEX = %v, want positive", long.NetGEX)
	}
	if math.Abs(long.NetGEX+short.NetGEX) > 1e-9 {
		t.Errorf("call short and put long of equal size should mirror: %v vs %v",
			short.NetGEX, long.NetGEX)
	}
}

func TestComputeNetEqualsStrikeSum(t *testing.T) {
	now := time.Now().UTC()
	expiry := now.Add(14 * 24 * time.Hour)
	lookup := mapLookup{
		"a": instrument("a", 95000, expiry, domain.Call),
		"b": instrument("b", 100000, expiry, domain.Put),
		"c": instrument("c", 105000, expiry, domain.Call),
	}
	snap := testEngine().Compute(map[string]float64{"a": 5, "b": -8, "c": 3}, lookup, 100000, 3, now)

	sum := 0.0
	for _, s := range snap.Strikes {
		sum += s.GEX
	}
	if math.Abs(sum-snap.NetGEX) > 1e-9 {
		t.Errorf("net %v != strike sum %v", snap.NetGEX, sum)
	}
	for i := 1; i < len(snap.Strikes); i++ {
		if snap.Strikes[i].Strike <= snap.Strikes[i-1].Strike {
			t.Fatal("strikes must be ascending")
		}
	}
}

func TestComputeExcludesDataGaps(t *testing.T) {
	now := time.Now().UTC()
	noIV := instrument("no-iv", 100000, now.Add(10*24*time.Hour), domain.Call)
	noIV.MarkIV = 0
	expiring := instrument("expiring", 100000, now.Add(time.Hour), domain.Call)
	lookup := mapLookup{"no-iv": noIV, "expiring": expiring}

	snap := testEngine().Compute(map[string]float64{
		"no-iv":    50,
		"expiring": 50,
		"unknown":  50,
	}, lookup, 100000, 3, now)

	if len(snap.Strikes) != 0 {
		t.Errorf("all positions should be excluded, got %d buckets", len(snap.Strikes))
	}
	if snap.NetGEX != 0 || snap.Regime != domain.RegimeFlat {
		t.Errorf("excluded-only book should be flat, got net %v regime %v", snap.NetGEX, snap.Regime)
	}
}

func TestComputeSeqMonotonic(t *testing.T) {
	e := testEngine()
	now := time.Now().UTC()
	var prev uint64
	for i := 0; i < 5; i++ {
		snap := e.Compute(nil, mapLookup{}, 100000, 0, now)
		if snap.Seq <= prev {
			t.Fatalf("seq %d not greater than %d", snap.Seq, prev)
		}
		prev = snap.Seq
	}
}

func TestFlipPriceInterpolation(t *testing.T) {
	e := testEngine()
	strikes := []domain.StrikeGamma{
		{Strike: 90000, GEX: -10},
		{Strike: 110000, GEX: 30},
	}
	flip := e.flipPrice(strikes, 100000)
	if flip == nil {
		t.Fatal("expected a flip price")
	}
	// cumulative is -10 at 90000 and +20 at 110000; zero at one third
	want := 90000 + 20000.0/3
	if math.Abs(*flip-want) > 1e-6 {
		t.Errorf("flip = %v, want %v", *flip, want)
	}
	if *flip <= 90000 || *flip >= 110000 {
		t.Errorf("flip %v must lie strictly between the crossing strikes", *flip)
	}
}

func TestFlipPriceNoCrossing(t *testing.T) {
	e := testEngine()
	strikes := []domain.StrikeGamma{
		{Strike: 95000, GEX: 10},
		{Strike: 100000, GEX: 5},
		{Strike: 105000, GEX: 1},
	}
	if flip := e.flipPrice(strikes, 100000); flip != nil {
		t.Errorf("flip = %v, want nil for all-positive curve", *flip)
	}
}

func TestFlipPriceCrossingOutsideBandIsNil(t *testing.T) {
	e := testEngine() // band 0.15 around spot 100000: [85000, 115000]
	strikes := []domain.StrikeGamma{
		{Strike: 50000, GEX: -10},
		{Strike: 95000, GEX: 15},
	}
	// cumulative crosses zero at 68000, well below the band
	if flip := e.flipPrice(strikes, 100000); flip != nil {
		t.Errorf("flip = %v, want nil for a crossing outside the band", *flip)
	}
}

func TestFlipPriceAccumulatesOutOfBandStrikes(t *testing.T) {
	e := testEngine()
	strikes := []domain.StrikeGamma{
		{Strike: 50000, GEX: -10},
		{Strike: 95000, GEX: 4},
		{Strike: 105000, GEX: 10},
	}
	// the deep out-of-band short keeps the cumulative negative until
	// 105000; dropping it would move the crossing below 95000
	flip := e.flipPrice(strikes, 100000)
	if flip == nil {
		t.Fatal("expected a flip price")
	}
	want := 101000.0
	if math.Abs(*flip-want) > 1e-6 {
		t.Errorf("flip = %v, want %v", *flip, want)
	}
}

func TestFlipPriceZeroBandIsUnbounded(t *testing.T) {
	e := NewEngine(Config{MinDTE: 2 * time.Hour}, discardLogger())
	strikes := []domain.StrikeGamma{
		{Strike: 50000, GEX: -10},
		{Strike: 95000, GEX: 15},
	}
	flip := e.flipPrice(strikes, 100000)
	if flip == nil {
		t.Fatal("expected a flip price with the band disabled")
	}
	if math.Abs(*flip-68000) > 1e-6 {
		t.Errorf("flip = %v, want 68000", *flip)
	}
}

func TestExtremes(t *testing.T) {
	strikes := []domain.StrikeGamma{
		{Strike: 95000, GEX: -40},
		{Strike: 100000, GEX: 25},
		{Strike: 105000, GEX: 10},
	}
	support, resistance := extremes(strikes)
	if support.Strike != 100000 {
		t.Errorf("max support at %v, want 100000", support.Strike)
	}
	if resistance.Strike != 95000 {
		t.Errorf("max resistance at %v, want 95000", resistance.Strike)
	}
}

func TestTimeWeightingShrinksFarExpiries(t *testing.T) {
	now := time.Now().UTC()
	near := mapLookup{"x": instrument("x", 100000, now.Add(4*24*time.Hour), domain.Call)}
	far := mapLookup{"x": instrument("x", 100000, now.Add(16*24*time.Hour), domain.Call)}
	positions := map[string]float64{"x": 10}

	weighted := NewEngine(Config{MinDTE: 2 * time.Hour, FlipBand: 0.15, TimeWeighted: true}, discardLogger())
	plain := NewEngine(Config{MinDTE: 2 * time.Hour, FlipBand: 0.15}, discardLogger())

	wNear := weighted.Compute(positions, near, 100000, 1, now).NetGEX
	pNear := plain.Compute(positions, near, 100000, 1, now).NetGEX
	ratioNear := wNear / pNear

	wFar := weighted.Compute(positions, far, 100000, 1, now).NetGEX
	pFar := plain.Compute(positions, far, 100000, 1, now).NetGEX
	ratioFar := wFar / pFar

	if ratioNear <= ratioFar {
		t.Errorf("time weighting should discount far expiries more: near ratio %v, far ratio %v",
			ratioNear, ratioFar)
	}
	if math.Abs(ratioNear-0.5) > 1e-6 {
		t.Errorf("4-day weight = %v, want 0.5 (1/sqrt(4))", ratioNear)
	}
}
