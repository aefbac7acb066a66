package domain

import "time"

// Regime classifies the sign of net dealer gamma exposure.
type Regime string

const (
	RegimePositive Regime = "positive"
	RegimeNegative Regime = "negative"
	RegimeFlat     Regime = "flat"
)

// StrikeGamma is one strike bucket of the GEX curve.
type StrikeGamma struct {
	Strike   float64 `json:"strike"`
	GEX      float64 `json:"gex"`
	Position float64 `json:"dealer_position"`
}

// GEXSnapshot is a fully computed gamma-exposure result. A snapshot is
// immutable once constructed; publication replaces the previous snapshot
// wholesale, never patches it. Seq increases monotonically with computation
// order, and stores reject writes that would move it backwards.
type GEXSnapshot struct {
	ID            string        `json:"id"`
	Seq           uint64        `json:"seq"`
	Timestamp     time.Time     `json:"timestamp"`
	SpotPrice     float64       `json:"spot_price"`
	Strikes       []StrikeGamma `json:"gex_by_strike"` // ascending by strike
	NetGEX        float64       `json:"net_gex"`
	FlipPrice     *float64      `json:"flip_price"` // nil when no sign crossing exists
	Regime        Regime        `json:"regime"`
	MaxSupport    StrikeGamma   `json:"max_support"`
	MaxResistance StrikeGamma   `json:"max_resistance"`
	TradeCount    uint64        `json:"trade_count"`
}

// Age returns how far in the past the snapshot was computed.
func (s *GEXSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.Timestamp)
}
