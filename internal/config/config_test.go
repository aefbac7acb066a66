package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Deribit.Underlying != "BTC" {
		t.Errorf("underlying = %q, want BTC", cfg.Deribit.Underlying)
	}
	if cfg.Mode != "full" {
		t.Errorf("mode = %q, want full", cfg.Mode)
	}
	if cfg.GEX.RecomputeInterval.Duration != 5*time.Second {
		t.Errorf("recompute interval = %v, want 5s", cfg.GEX.RecomputeInterval.Duration)
	}
	if !cfg.GEX.TimeWeighted {
		t.Error("time weighting should default on")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEXSTREAM_DERIBIT_UNDERLYING", "ETH")
	t.Setenv("GEXSTREAM_FEED_BUFFER_SIZE", "256")
	t.Setenv("GEXSTREAM_GEX_FLIP_SEARCH_BAND", "0.25")
	t.Setenv("GEXSTREAM_GEX_RECOMPUTE_INTERVAL", "10s")
	t.Setenv("GEXSTREAM_MODE", "stream")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Deribit.Underlying != "ETH" {
		t.Errorf("underlying = %q, want ETH", cfg.Deribit.Underlying)
	}
	if cfg.Feed.BufferSize != 256 {
		t.Errorf("buffer size = %d, want 256", cfg.Feed.BufferSize)
	}
	if cfg.GEX.FlipSearchBand != 0.25 {
		t.Errorf("flip band = %v, want 0.25", cfg.GEX.FlipSearchBand)
	}
	if cfg.GEX.RecomputeInterval.Duration != 10*time.Second {
		t.Errorf("recompute interval = %v, want 10s", cfg.GEX.RecomputeInterval.Duration)
	}
	if cfg.Mode != "stream" {
		t.Errorf("mode = %q, want stream", cfg.Mode)
	}
}

func TestCredentialAliases(t *testing.T) {
	t.Setenv("DERIBIT_CLIENT_ID", "abc")
	t.Setenv("DERIBIT_CLIENT_SECRET", "xyz")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Deribit.ClientID != "abc" || cfg.Deribit.ClientSecret != "xyz" {
		t.Errorf("credentials = %q/%q, want abc/xyz", cfg.Deribit.ClientID, cfg.Deribit.ClientSecret)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "everything"
	cfg.Server.Port = -1
	cfg.GEX.FlipSearchBand = 3

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"mode", "port", "flip_search_band"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestValidateFlipBandZeroDisablesBand(t *testing.T) {
	cfg := Defaults()
	cfg.GEX.FlipSearchBand = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with flip_search_band 0 = %v, want nil", err)
	}
}

func TestValidateServerEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "serve"
	cfg.Server.Enabled = false
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "server.enabled") {
		t.Errorf("Validate = %v, want serve mode to require the server", err)
	}

	// full mode may run headless with the server switched off
	cfg.Mode = "full"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate headless full mode = %v, want nil", err)
	}
}
