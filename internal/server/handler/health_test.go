package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hedgeiq/gexstream/internal/domain"
	"github.com/hedgeiq/gexstream/internal/store/memory"
)

type stubFeed struct{ state string }

func (s *stubFeed) Status() string { return s.state }
func (s *stubFeed) Counters() (uint64, uint64, uint64) {
	return 42, 3, 1
}

type stubDegraded struct{ degraded bool }

func (s *stubDegraded) Degraded() bool { return s.degraded }

func TestHealth(t *testing.T) {
	store := memory.New()
	if err := store.PutSnapshot(context.Background(), &domain.GEXSnapshot{
		ID: "s1", Seq: 1, Timestamp: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	h := NewHealthHandler(store, &stubFeed{state: "connected"}, &stubDegraded{})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/api/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if body.FeedState != "connected" || body.TradesAccepted != 42 {
		t.Errorf("feed fields wrong: %+v", body)
	}
	if body.SnapshotAge == nil {
		t.Error("snapshot age missing")
	}
}

func TestHealthDegraded(t *testing.T) {
	h := NewHealthHandler(memory.New(), nil, &stubDegraded{degraded: true})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest("GET", "/api/health", nil))

	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" || !body.StoreDegraded {
		t.Errorf("expected degraded, got %+v", body)
	}
	if body.SnapshotAge != nil {
		t.Error("snapshot age should be absent before first publish")
	}
}
