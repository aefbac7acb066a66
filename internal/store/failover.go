// Package store composes snapshot store backends. The failover store keeps
// the service publishing through a durable-backend outage by degrading to
// an in-process store and recovering when the backend comes back.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// Failover writes to a durable backend and shadows every write into a
// fallback store. While the durable backend is failing, reads are served
// from the fallback; a later successful durable write clears the degraded
// state.
type Failover struct {
	durable  domain.SnapshotStore
	fallback domain.SnapshotStore
	degraded atomic.Bool
	logger   *slog.Logger
}

var _ domain.SnapshotStore = (*Failover)(nil)

func NewFailover(durable, fallback domain.SnapshotStore, logger *slog.Logger) *Failover {
	return &Failover{
		durable:  durable,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "store")),
	}
}

// Degraded reports whether the durable backend is currently failing.
func (f *Failover) Degraded() bool { return f.degraded.Load() }

// expected reports errors that are part of the store contract rather than
// signs of an unavailable backend.
func expected(err error) bool {
	return errors.Is(err, domain.ErrStaleWrite) || errors.Is(err, domain.ErrNotAvailable)
}

func (f *Failover) noteFailure(op string, err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.logger.Warn("durable store unavailable, serving from memory",
			slog.String("op", op),
			slog.Any("error", err))
	}
}

func (f *Failover) noteSuccess() {
	if f.degraded.CompareAndSwap(true, false) {
		f.logger.Info("durable store recovered")
	}
}

func (f *Failover) PutSnapshot(ctx context.Context, snap *domain.GEXSnapshot) error {
	if err := f.fallback.PutSnapshot(ctx, snap); err != nil {
		return err
	}
	if err := f.durable.PutSnapshot(ctx, snap); err != nil {
		if expected(err) {
			return err
		}
		f.noteFailure("put_snapshot", err)
		return nil
	}
	f.noteSuccess()
	return nil
}

func (f *Failover) GetSnapshot(ctx context.Context) (*domain.GEXSnapshot, error) {
	if f.degraded.Load() {
		return f.fallback.GetSnapshot(ctx)
	}
	snap, err := f.durable.GetSnapshot(ctx)
	if err != nil && !expected(err) {
		f.noteFailure("get_snapshot", err)
		return f.fallback.GetSnapshot(ctx)
	}
	return snap, err
}

func (f *Failover) PutPositions(ctx context.Context, positions map[string]float64) error {
	if err := f.fallback.PutPositions(ctx, positions); err != nil {
		return err
	}
	if err := f.durable.PutPositions(ctx, positions); err != nil {
		f.noteFailure("put_positions", err)
		return nil
	}
	f.noteSuccess()
	return nil
}

func (f *Failover) GetPositions(ctx context.Context) (map[string]float64, error) {
	if f.degraded.Load() {
		return f.fallback.GetPositions(ctx)
	}
	positions, err := f.durable.GetPositions(ctx)
	if err != nil && !expected(err) {
		f.noteFailure("get_positions", err)
		return f.fallback.GetPositions(ctx)
	}
	return positions, err
}

func (f *Failover) SetSpotPrice(ctx context.Context, price float64) error {
	if err := f.fallback.SetSpotPrice(ctx, price); err != nil {
		return err
	}
	if err := f.durable.SetSpotPrice(ctx, price); err != nil {
		f.noteFailure("set_spot", err)
		return nil
	}
	f.noteSuccess()
	return nil
}

func (f *Failover) GetSpotPrice(ctx context.Context) (float64, error) {
	if f.degraded.Load() {
		return f.fallback.GetSpotPrice(ctx)
	}
	price, err := f.durable.GetSpotPrice(ctx)
	if err != nil && !expected(err) {
		f.noteFailure("get_spot", err)
		return f.fallback.GetSpotPrice(ctx)
	}
	return price, err
}
