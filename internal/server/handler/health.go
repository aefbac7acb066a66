package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// FeedStatus reports the trade feed's connection state and counters.
type FeedStatus interface {
	Status() string
	Counters() (accepted, dropped, dupes uint64)
}

// DegradedReporter reports whether the durable store backend is failing.
type DegradedReporter interface {
	Degraded() bool
}

// HealthHandler serves GET /api/health.
type HealthHandler struct {
	store    domain.SnapshotStore
	feed     FeedStatus       // nil in serve mode
	degraded DegradedReporter // nil without a failover store
	started  time.Time
}

func NewHealthHandler(store domain.SnapshotStore, feed FeedStatus, degraded DegradedReporter) *HealthHandler {
	return &HealthHandler{
		store:    store,
		feed:     feed,
		degraded: degraded,
		started:  time.Now().UTC(),
	}
}

type healthResponse struct {
	Status          string   `json:"status"`
	UptimeSeconds   float64  `json:"uptime_seconds"`
	FeedState       string   `json:"feed_state,omitempty"`
	TradesAccepted  uint64   `json:"trades_accepted"`
	TradesDropped   uint64   `json:"trades_dropped"`
	TradesDuplicate uint64   `json:"trades_duplicate"`
	StoreDegraded   bool     `json:"store_degraded"`
	SnapshotAge     *float64 `json:"snapshot_age_seconds,omitempty"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	if h.feed != nil {
		resp.FeedState = h.feed.Status()
		resp.TradesAccepted, resp.TradesDropped, resp.TradesDuplicate = h.feed.Counters()
	}
	if h.degraded != nil && h.degraded.Degraded() {
		resp.StoreDegraded = true
		resp.Status = "degraded"
	}
	snap, err := h.store.GetSnapshot(r.Context())
	switch {
	case err == nil:
		age := snap.Age(time.Now().UTC()).Seconds()
		resp.SnapshotAge = &age
	case errors.Is(err, domain.ErrNotAvailable):
		// still warming up
	default:
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}
