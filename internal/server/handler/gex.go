// Package handler implements the read-only HTTP API over the snapshot
// store.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
)

// GEXHandler serves the exposure curve, flip price and dealer positions.
type GEXHandler struct {
	store      domain.SnapshotStore
	staleAfter time.Duration
	logger     *slog.Logger
}

func NewGEXHandler(store domain.SnapshotStore, staleAfter time.Duration, logger *slog.Logger) *GEXHandler {
	return &GEXHandler{
		store:      store,
		staleAfter: staleAfter,
		logger:     logger.With(slog.String("component", "api")),
	}
}

type snapshotResponse struct {
	*domain.GEXSnapshot
	Stale      bool    `json:"stale"`
	AgeSeconds float64 `json:"age_seconds"`
}

// Snapshot handles GET /api/gex.
func (h *GEXHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.GetSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotAvailable) {
			writeError(w, http.StatusServiceUnavailable, "no snapshot published yet")
			return
		}
		h.logger.Error("snapshot read failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}
	age := snap.Age(time.Now().UTC())
	writeJSON(w, http.StatusOK, snapshotResponse{
		GEXSnapshot: snap,
		Stale:       h.staleAfter > 0 && age > h.staleAfter,
		AgeSeconds:  age.Seconds(),
	})
}

type flipResponse struct {
	FlipPrice *float64      `json:"flip_price"`
	Regime    domain.Regime `json:"regime"`
	NetGEX    float64       `json:"net_gex"`
	SpotPrice float64       `json:"spot_price"`
	Timestamp time.Time     `json:"timestamp"`
	Stale     bool          `json:"stale"`
}

// Flip handles GET /api/gex/flip.
func (h *GEXHandler) Flip(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.GetSnapshot(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotAvailable) {
			writeError(w, http.StatusServiceUnavailable, "no snapshot published yet")
			return
		}
		h.logger.Error("snapshot read failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return
	}
	age := snap.Age(time.Now().UTC())
	writeJSON(w, http.StatusOK, flipResponse{
		FlipPrice: snap.FlipPrice,
		Regime:    snap.Regime,
		NetGEX:    snap.NetGEX,
		SpotPrice: snap.SpotPrice,
		Timestamp: snap.Timestamp,
		Stale:     h.staleAfter > 0 && age > h.staleAfter,
	})
}

// Positions handles GET /api/positions.
func (h *GEXHandler) Positions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.GetPositions(r.Context())
	if err != nil {
		h.logger.Error("positions read failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "positions unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": positions,
		"count":     len(positions),
	})
}

type positionResponse struct {
	Instrument string  `json:"instrument"`
	Position   float64 `json:"position"`
}

// Position handles GET /api/positions/{instrument}.
func (h *GEXHandler) Position(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("instrument")
	if _, ok := domain.ParseInstrumentName(name); !ok {
		writeError(w, http.StatusBadRequest, "invalid instrument name")
		return
	}
	positions, err := h.store.GetPositions(r.Context())
	if err != nil {
		h.logger.Error("positions read failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "positions unavailable")
		return
	}
	pos, ok := positions[name]
	if !ok {
		writeError(w, http.StatusNotFound, "no position for instrument")
		return
	}
	writeJSON(w, http.StatusOK, positionResponse{Instrument: name, Position: pos})
}
