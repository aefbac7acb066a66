package domain

import (
	"testing"
	"time"
)

func TestParseInstrumentName(t *testing.T) {
	key, ok := ParseInstrumentName("BTC-27DEC24-85000-P")
	if !ok {
		t.Fatal("expected valid instrument name")
	}
	if key.Underlying != "BTC" {
		t.Errorf("underlying = %q, want BTC", key.Underlying)
	}
	if key.Strike != 85000 {
		t.Errorf("strike = %v, want 85000", key.Strike)
	}
	if key.Type != Put {
		t.Errorf("type = %v, want put", key.Type)
	}
	want := time.Date(2024, time.December, 27, 8, 0, 0, 0, time.UTC)
	if !key.Expiry.Equal(want) {
		t.Errorf("expiry = %v, want %v", key.Expiry, want)
	}
}

func TestParseInstrumentNameSingleDigitDay(t *testing.T) {
	key, ok := ParseInstrumentName("ETH-5JAN25-3000-C")
	if !ok {
		t.Fatal("expected valid instrument name")
	}
	if key.Type != Call {
		t.Errorf("type = %v, want call", key.Type)
	}
	if key.Expiry.Day() != 5 || key.Expiry.Month() != time.January {
		t.Errorf("expiry = %v, want Jan 5", key.Expiry)
	}
}

func TestParseInstrumentNameRejects(t *testing.T) {
	bad := []string{
		"",
		"BTC-PERPETUAL",
		"BTC-27DEC24",
		"BTC-27DEC24-85000",
		"BTC-27DEC24-85000-X",
		"BTC-32DEC24-85000-C",
		"BTC-27XXX24-85000-C",
		"btc-27DEC24-85000-C",
	}
	for _, name := range bad {
		if _, ok := ParseInstrumentName(name); ok {
			t.Errorf("ParseInstrumentName(%q) accepted, want reject", name)
		}
	}
}
