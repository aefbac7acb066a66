// Package memory is an in-process snapshot store. It backs tests and the
// degraded mode of the failover store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// Store keeps the latest snapshot behind an atomic pointer so readers never
// observe a partially written curve.
type Store struct {
	snap atomic.Pointer[domain.GEXSnapshot]

	mu        sync.RWMutex
	positions map[string]float64
	spot      float64
	spotSet   bool
}

var _ domain.SnapshotStore = (*Store)(nil)

func New() *Store {
	return &Store{positions: make(map[string]float64)}
}

// PutSnapshot replaces the published snapshot. Writes whose sequence number
// does not advance past the current one are rejected with ErrStaleWrite.
func (s *Store) PutSnapshot(ctx context.Context, snap *domain.GEXSnapshot) error {
	for {
		cur := s.snap.Load()
		if cur != nil && snap.Seq <= cur.Seq {
			return fmt.Errorf("memory: put snapshot seq %d <= %d: %w",
				snap.Seq, cur.Seq, domain.ErrStaleWrite)
		}
		if s.snap.CompareAndSwap(cur, snap) {
			return nil
		}
	}
}

func (s *Store) GetSnapshot(ctx context.Context) (*domain.GEXSnapshot, error) {
	snap := s.snap.Load()
	if snap == nil {
		return nil, fmt.Errorf("memory: no snapshot published: %w", domain.ErrNotAvailable)
	}
	return snap, nil
}

// PutPositions replaces the persisted inventory wholesale.
func (s *Store) PutPositions(ctx context.Context, positions map[string]float64) error {
	cp := make(map[string]float64, len(positions))
	for k, v := range positions {
		cp[k] = v
	}
	s.mu.Lock()
	s.positions = cp
	s.mu.Unlock()
	return nil
}

func (s *Store) GetPositions(ctx context.Context) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]float64, len(s.positions))
	for k, v := range s.positions {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetSpotPrice(ctx context.Context, price float64) error {
	s.mu.Lock()
	s.spot = price
	s.spotSet = true
	s.mu.Unlock()
	return nil
}

func (s *Store) GetSpotPrice(ctx context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.spotSet {
		return 0, fmt.Errorf("memory: no spot price: %w", domain.ErrNotAvailable)
	}
	return s.spot, nil
}
