package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// Key schema. The snapshot JSON is the source of truth; flip price and
// last-updated are mirrored into their own keys for cheap polling.
const (
	keySnapshot    = "gex:current"
	keySeq         = "gex:seq"
	keyFlip        = "gex:flip"
	keyLastUpdated = "gex:last_updated"
	keyInventory   = "dealer_inventory"
	keySpot        = "spot_price"
)

// Store implements domain.SnapshotStore on Redis.
type Store struct {
	client *redis.Client
}

var _ domain.SnapshotStore = (*Store)(nil)

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// unavailable tags a transport failure so the failover store can tell it
// apart from contract errors like ErrStaleWrite.
func unavailable(op string, err error) error {
	return fmt.Errorf("redis: %s: %w", op, errors.Join(domain.ErrStoreUnavailable, err))
}

// PutSnapshot writes the snapshot and its mirror keys in one pipeline.
// A write whose sequence number does not advance past the stored one is
// rejected with ErrStaleWrite. The sequence check is a guard, not a lock;
// the pipeline only runs with a single publisher.
func (s *Store) PutSnapshot(ctx context.Context, snap *domain.GEXSnapshot) error {
	stored, err := s.client.Get(ctx, keySeq).Result()
	switch {
	case err == nil:
		seq, perr := strconv.ParseUint(stored, 10, 64)
		if perr == nil && snap.Seq <= seq {
			return fmt.Errorf("redis: put snapshot seq %d <= %d: %w",
				snap.Seq, seq, domain.ErrStaleWrite)
		}
	case errors.Is(err, redis.Nil):
		// first publish
	default:
		return unavailable("read seq", err)
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, keySnapshot, payload, 0)
	pipe.Set(ctx, keySeq, strconv.FormatUint(snap.Seq, 10), 0)
	pipe.Set(ctx, keyLastUpdated, snap.Timestamp.UTC().Format(time.RFC3339Nano), 0)
	if snap.FlipPrice != nil {
		pipe.Set(ctx, keyFlip, strconv.FormatFloat(*snap.FlipPrice, 'f', -1, 64), 0)
	} else {
		pipe.Del(ctx, keyFlip)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("put snapshot", err)
	}
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context) (*domain.GEXSnapshot, error) {
	payload, err := s.client.Get(ctx, keySnapshot).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: no snapshot published: %w", domain.ErrNotAvailable)
	}
	if err != nil {
		return nil, unavailable("get snapshot", err)
	}
	var snap domain.GEXSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("redis: decode snapshot: %w", err)
	}
	return &snap, nil
}

// PutPositions replaces the inventory hash wholesale so instruments that
// went flat do not linger.
func (s *Store) PutPositions(ctx context.Context, positions map[string]float64) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keyInventory)
	if len(positions) > 0 {
		fields := make(map[string]any, len(positions))
		for name, pos := range positions {
			fields[name] = strconv.FormatFloat(pos, 'f', -1, 64)
		}
		pipe.HSet(ctx, keyInventory, fields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("put positions", err)
	}
	return nil
}

func (s *Store) GetPositions(ctx context.Context) (map[string]float64, error) {
	fields, err := s.client.HGetAll(ctx, keyInventory).Result()
	if err != nil {
		return nil, unavailable("get positions", err)
	}
	out := make(map[string]float64, len(fields))
	for name, raw := range fields {
		pos, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("redis: parse position %s=%q: %w", name, raw, err)
		}
		out[name] = pos
	}
	return out, nil
}

func (s *Store) SetSpotPrice(ctx context.Context, price float64) error {
	err := s.client.Set(ctx, keySpot, strconv.FormatFloat(price, 'f', -1, 64), 0).Err()
	if err != nil {
		return unavailable("set spot", err)
	}
	return nil
}

func (s *Store) GetSpotPrice(ctx context.Context) (float64, error) {
	raw, err := s.client.Get(ctx, keySpot).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("redis: no spot price: %w", domain.ErrNotAvailable)
	}
	if err != nil {
		return 0, unavailable("get spot", err)
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("redis: parse spot %q: %w", raw, err)
	}
	return price, nil
}
