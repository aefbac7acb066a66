package domain

import "context"

// SnapshotStore holds exactly one current GEXSnapshot plus the current dealer
// position map. PutSnapshot must be atomic with respect to concurrent readers
// and must return ErrStaleWrite when the incoming Seq is not newer than the
// stored one. GetSnapshot returns ErrNotAvailable before the first publish.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, snap *GEXSnapshot) error
	GetSnapshot(ctx context.Context) (*GEXSnapshot, error)

	PutPositions(ctx context.Context, positions map[string]float64) error
	GetPositions(ctx context.Context) (map[string]float64, error)

	SetSpotPrice(ctx context.Context, price float64) error
	GetSpotPrice(ctx context.Context) (float64, error)
}

// TradeJournal durably records every applied trade so dealer inventory can be
// rebuilt by replay after a restart. Append must tolerate redelivery (same
// trade ID appended twice) without duplicating rows.
type TradeJournal interface {
	Append(ctx context.Context, trades []Trade) error
	Replay(ctx context.Context, fn func(Trade) error) error
}

// CatalogSource fetches the current option chain and spot price from the
// venue's reference-data endpoints.
type CatalogSource interface {
	FetchInstruments(ctx context.Context, currency string) ([]Instrument, error)
	FetchIndexPrice(ctx context.Context, indexName string) (float64, error)
}
