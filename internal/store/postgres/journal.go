package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hedgeiq/gexstream/internal/domain"
)

const insertTradeSQL = `
INSERT INTO trade_journal (trade_id, instrument, ts, size, price, taker_side, iv)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (trade_id) DO NOTHING`

const replayTradesSQL = `
SELECT trade_id, instrument, ts, size, price, taker_side, iv
FROM trade_journal
ORDER BY ts, trade_id`

// Journal implements domain.TradeJournal on PostgreSQL. The primary key on
// trade_id makes Append idempotent under redelivery.
type Journal struct {
	pool *pgxpool.Pool
}

var _ domain.TradeJournal = (*Journal)(nil)

func NewJournal(pool *pgxpool.Pool) *Journal {
	return &Journal{pool: pool}
}

// Append inserts the trades in one batch, skipping IDs already journaled.
func (j *Journal) Append(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(insertTradeSQL,
			t.ID, t.Instrument, t.Timestamp, t.Size, t.Price, string(t.TakerSide), t.IV)
	}
	results := j.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range trades {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: append trade: %w", err)
		}
	}
	return nil
}

// Replay streams all journaled trades in timestamp order through fn.
func (j *Journal) Replay(ctx context.Context, fn func(domain.Trade) error) error {
	rows, err := j.pool.Query(ctx, replayTradesSQL)
	if err != nil {
		return fmt.Errorf("postgres: replay query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Trade
		var side string
		if err := rows.Scan(&t.ID, &t.Instrument, &t.Timestamp, &t.Size, &t.Price, &side, &t.IV); err != nil {
			return fmt.Errorf("postgres: replay scan: %w", err)
		}
		t.TakerSide = domain.Side(side)
		if err := fn(t); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("postgres: replay rows: %w", err)
	}
	return nil
}
