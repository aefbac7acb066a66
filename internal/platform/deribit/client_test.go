package deribit

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchInstrumentsMergesBookSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/get_instruments":
			if got := r.URL.Query().Get("kind"); got != "option" {
				t.Errorf("kind = %q, want option", got)
			}
			io.WriteString(w, `{"result": [
				{"instrument_name": "BTC-27DEC24-85000-C", "base_currency": "BTC",
				 "strike": 85000, "option_type": "call", "kind": "option",
				 "expiration_timestamp": 1735286400000, "contract_size": 1},
				{"instrument_name": "BTC-27DEC24-85000-P", "base_currency": "BTC",
				 "strike": 85000, "option_type": "put", "kind": "option",
				 "expiration_timestamp": 1735286400000, "contract_size": 1},
				{"instrument_name": "BTC-PERPETUAL", "kind": "future"}
			]}`)
		case "/get_book_summary_by_currency":
			io.WriteString(w, `{"result": [
				{"instrument_name": "BTC-27DEC24-85000-C", "mark_iv": 62.5, "open_interest": 1200}
			]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, discardLogger())
	instruments, err := c.FetchInstruments(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(instruments) != 2 {
		t.Fatalf("got %d instruments, want 2 (futures excluded)", len(instruments))
	}

	call := instruments[0]
	if call.Name != "BTC-27DEC24-85000-C" {
		t.Fatalf("unexpected order: %q first", call.Name)
	}
	if call.MarkIV != 0.625 {
		t.Errorf("mark IV = %v, want 0.625 (percent converted)", call.MarkIV)
	}
	if call.OpenInterest != 1200 {
		t.Errorf("open interest = %v, want 1200", call.OpenInterest)
	}
	wantExpiry := time.UnixMilli(1735286400000).UTC()
	if !call.Expiry.Equal(wantExpiry) {
		t.Errorf("expiry = %v, want %v", call.Expiry, wantExpiry)
	}

	// no book summary row: IV stays unknown
	if put := instruments[1]; put.MarkIV != 0 {
		t.Errorf("put mark IV = %v, want 0", put.MarkIV)
	}
}

func TestFetchIndexPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("index_name"); got != "btc_usd" {
			t.Errorf("index_name = %q, want btc_usd", got)
		}
		io.WriteString(w, `{"result": {"index_price": 97500.25}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, discardLogger())
	price, err := c.FetchIndexPrice(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if price != 97500.25 {
		t.Errorf("price = %v, want 97500.25", price)
	}
}

func TestFetchIndexPriceVenueError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error": {"code": 10001, "message": "unknown index"}}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, discardLogger())
	if _, err := c.FetchIndexPrice(context.Background(), "BTC"); err == nil {
		t.Fatal("expected venue error")
	}
}
