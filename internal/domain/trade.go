package domain

import "time"

// Side is the taker side of a trade: the direction of the participant who
// consumed liquidity. The dealer is assumed to be the passive counter-party.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// Trade is one normalized option trade print from the venue feed. Trades are
// immutable and logically arrive once, but the feed may redeliver them;
// dedup by ID happens before a Trade reaches the inventory tracker.
type Trade struct {
	ID         string // venue trade id, unique, dedup key
	Instrument string
	Timestamp  time.Time
	Size       float64 // contracts, always > 0
	Price      float64
	TakerSide  Side
	IV         float64 // trade-level implied vol reported by the venue, informational
}
