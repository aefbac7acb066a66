package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

type stubSource struct {
	instruments []domain.Instrument
	err         error
}

func (s *stubSource) FetchInstruments(ctx context.Context, currency string) ([]domain.Instrument, error) {
	return s.instruments, s.err
}

func (s *stubSource) FetchIndexPrice(ctx context.Context, currency string) (float64, error) {
	return 0, errors.New("not used")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func inst(name string, expiry time.Time) domain.Instrument {
	return domain.Instrument{Name: name, Strike: 100000, Expiry: expiry, Multiplier: 1}
}

func TestRefreshReplacesWholesale(t *testing.T) {
	src := &stubSource{instruments: []domain.Instrument{
		inst("a", time.Now().Add(24*time.Hour)),
		inst("b", time.Now().Add(48*time.Hour)),
	}}
	c := New(src, "BTC", 30, discardLogger())

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}

	src.instruments = []domain.Instrument{inst("c", time.Now().Add(24 * time.Hour))}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, ok := c.Instrument("a"); ok {
		t.Error("delisted instrument a still present after refresh")
	}
	if _, ok := c.Instrument("c"); !ok {
		t.Error("new instrument c missing after refresh")
	}
}

func TestRefreshFiltersExpiryHorizon(t *testing.T) {
	src := &stubSource{instruments: []domain.Instrument{
		inst("near", time.Now().Add(7*24*time.Hour)),
		inst("far", time.Now().Add(90*24*time.Hour)),
	}}
	c := New(src, "BTC", 30, discardLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, ok := c.Instrument("near"); !ok {
		t.Error("near expiry should be kept")
	}
	if _, ok := c.Instrument("far"); ok {
		t.Error("expiry beyond the horizon should be dropped")
	}
}

func TestFailedRefreshKeepsPreviousChain(t *testing.T) {
	src := &stubSource{instruments: []domain.Instrument{inst("a", time.Now().Add(24 * time.Hour))}}
	c := New(src, "BTC", 30, discardLogger())
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	src.err = errors.New("venue down")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if _, ok := c.Instrument("a"); !ok {
		t.Error("failed refresh must keep the previous chain")
	}
}
