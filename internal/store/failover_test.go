package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
	"github.com/hedgeiq/gexstream/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyStore wraps a real store and fails every call while down is set.
type flakyStore struct {
	domain.SnapshotStore
	down bool
}

var errConnRefused = errors.New("connection refused")

func (f *flakyStore) PutSnapshot(ctx context.Context, snap *domain.GEXSnapshot) error {
	if f.down {
		return errConnRefused
	}
	return f.SnapshotStore.PutSnapshot(ctx, snap)
}

func (f *flakyStore) GetSnapshot(ctx context.Context) (*domain.GEXSnapshot, error) {
	if f.down {
		return nil, errConnRefused
	}
	return f.SnapshotStore.GetSnapshot(ctx)
}

func (f *flakyStore) PutPositions(ctx context.Context, positions map[string]float64) error {
	if f.down {
		return errConnRefused
	}
	return f.SnapshotStore.PutPositions(ctx, positions)
}

func (f *flakyStore) GetPositions(ctx context.Context) (map[string]float64, error) {
	if f.down {
		return nil, errConnRefused
	}
	return f.SnapshotStore.GetPositions(ctx)
}

func snapshot(seq uint64) *domain.GEXSnapshot {
	return &domain.GEXSnapshot{ID: "test", Seq: seq, Timestamp: time.Now().UTC()}
}

func TestFailoverDegradesAndServesFromFallback(t *testing.T) {
	durable := &flakyStore{SnapshotStore: memory.New()}
	f := NewFailover(durable, memory.New(), discardLogger())
	ctx := context.Background()

	if err := f.PutSnapshot(ctx, snapshot(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if f.Degraded() {
		t.Fatal("healthy backend marked degraded")
	}

	// backend goes away; publishing must keep working
	durable.down = true
	if err := f.PutSnapshot(ctx, snapshot(2)); err != nil {
		t.Fatalf("put during outage: %v", err)
	}
	if !f.Degraded() {
		t.Fatal("outage not detected")
	}
	snap, err := f.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("get during outage: %v", err)
	}
	if snap.Seq != 2 {
		t.Errorf("served seq %d during outage, want 2", snap.Seq)
	}
}

func TestFailoverRecovers(t *testing.T) {
	durable := &flakyStore{SnapshotStore: memory.New()}
	f := NewFailover(durable, memory.New(), discardLogger())
	ctx := context.Background()

	durable.down = true
	_ = f.PutSnapshot(ctx, snapshot(1))
	if !f.Degraded() {
		t.Fatal("expected degraded state")
	}

	durable.down = false
	if err := f.PutSnapshot(ctx, snapshot(2)); err != nil {
		t.Fatalf("put after recovery: %v", err)
	}
	if f.Degraded() {
		t.Fatal("successful write should clear the degraded flag")
	}

	// durable reads work again
	snap, err := f.GetSnapshot(ctx)
	if err != nil {
		t.Fatalf("get after recovery: %v", err)
	}
	if snap.Seq != 2 {
		t.Errorf("seq = %d, want 2", snap.Seq)
	}
}

func TestFailoverPassesThroughContractErrors(t *testing.T) {
	durable := &flakyStore{SnapshotStore: memory.New()}
	f := NewFailover(durable, memory.New(), discardLogger())
	ctx := context.Background()

	if _, err := f.GetSnapshot(ctx); !errors.Is(err, domain.ErrNotAvailable) {
		t.Errorf("err = %v, want ErrNotAvailable before first publish", err)
	}
	if f.Degraded() {
		t.Error("ErrNotAvailable must not trigger failover")
	}

	if err := f.PutSnapshot(ctx, snapshot(5)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := f.PutSnapshot(ctx, snapshot(5)); !errors.Is(err, domain.ErrStaleWrite) {
		t.Errorf("err = %v, want ErrStaleWrite", err)
	}
	if f.Degraded() {
		t.Error("ErrStaleWrite must not trigger failover")
	}
}
