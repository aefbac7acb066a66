package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies GEXSTREAM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. An empty path skips the
// file and uses defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GEXSTREAM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Deribit ──
	setStr(&cfg.Deribit.WsURL, "GEXSTREAM_DERIBIT_WS_URL")
	setStr(&cfg.Deribit.RestURL, "GEXSTREAM_DERIBIT_REST_URL")
	setStr(&cfg.Deribit.ClientID, "GEXSTREAM_DERIBIT_CLIENT_ID")
	setStr(&cfg.Deribit.ClientID, "DERIBIT_CLIENT_ID") // compatibility alias
	setStr(&cfg.Deribit.ClientSecret, "GEXSTREAM_DERIBIT_CLIENT_SECRET")
	setStr(&cfg.Deribit.ClientSecret, "DERIBIT_CLIENT_SECRET") // compatibility alias
	setStr(&cfg.Deribit.Underlying, "GEXSTREAM_DERIBIT_UNDERLYING")
	setInt(&cfg.Deribit.HeartbeatInterval, "GEXSTREAM_DERIBIT_HEARTBEAT_INTERVAL")
	setDuration(&cfg.Deribit.HeartbeatTimeout, "GEXSTREAM_DERIBIT_HEARTBEAT_TIMEOUT")
	setDuration(&cfg.Deribit.HandshakeTimeout, "GEXSTREAM_DERIBIT_HANDSHAKE_TIMEOUT")

	// ── Feed ──
	setInt(&cfg.Feed.BufferSize, "GEXSTREAM_FEED_BUFFER_SIZE")
	setInt(&cfg.Feed.DedupWindow, "GEXSTREAM_FEED_DEDUP_WINDOW")
	setDuration(&cfg.Feed.BackoffInitial, "GEXSTREAM_FEED_BACKOFF_INITIAL")
	setDuration(&cfg.Feed.BackoffMax, "GEXSTREAM_FEED_BACKOFF_MAX")
	setFloat64(&cfg.Feed.BackoffJitter, "GEXSTREAM_FEED_BACKOFF_JITTER")
	setInt(&cfg.Feed.MaxRetries, "GEXSTREAM_FEED_MAX_RETRIES")

	// ── Store ──
	setStr(&cfg.Store.Backend, "GEXSTREAM_STORE_BACKEND")
	setStr(&cfg.Store.Redis.Addr, "GEXSTREAM_REDIS_ADDR")
	setStr(&cfg.Store.Redis.Password, "GEXSTREAM_REDIS_PASSWORD")
	setInt(&cfg.Store.Redis.DB, "GEXSTREAM_REDIS_DB")
	setInt(&cfg.Store.Redis.PoolSize, "GEXSTREAM_REDIS_POOL_SIZE")
	setInt(&cfg.Store.Redis.MaxRetries, "GEXSTREAM_REDIS_MAX_RETRIES")
	setBool(&cfg.Store.Redis.TLSEnabled, "GEXSTREAM_REDIS_TLS_ENABLED")

	// ── Journal ──
	setBool(&cfg.Journal.Enabled, "GEXSTREAM_JOURNAL_ENABLED")
	setStr(&cfg.Journal.DSN, "GEXSTREAM_JOURNAL_DSN")
	setStr(&cfg.Journal.Host, "GEXSTREAM_JOURNAL_HOST")
	setInt(&cfg.Journal.Port, "GEXSTREAM_JOURNAL_PORT")
	setStr(&cfg.Journal.Database, "GEXSTREAM_JOURNAL_DATABASE")
	setStr(&cfg.Journal.User, "GEXSTREAM_JOURNAL_USER")
	setStr(&cfg.Journal.Password, "GEXSTREAM_JOURNAL_PASSWORD")
	setStr(&cfg.Journal.SSLMode, "GEXSTREAM_JOURNAL_SSLMODE")
	setInt(&cfg.Journal.PoolMaxConns, "GEXSTREAM_JOURNAL_POOL_MAX_CONNS")
	setInt(&cfg.Journal.PoolMinConns, "GEXSTREAM_JOURNAL_POOL_MIN_CONNS")

	// ── GEX ──
	setInt(&cfg.GEX.RecomputeTrades, "GEXSTREAM_GEX_RECOMPUTE_TRADES")
	setDuration(&cfg.GEX.RecomputeInterval, "GEXSTREAM_GEX_RECOMPUTE_INTERVAL")
	setInt(&cfg.GEX.ExpiryWindowDays, "GEXSTREAM_GEX_EXPIRY_WINDOW_DAYS")
	setFloat64(&cfg.GEX.MinDTEHours, "GEXSTREAM_GEX_MIN_DTE_HOURS")
	setFloat64(&cfg.GEX.FlipSearchBand, "GEXSTREAM_GEX_FLIP_SEARCH_BAND")
	setBool(&cfg.GEX.TimeWeighted, "GEXSTREAM_GEX_TIME_WEIGHTED")
	setFloat64(&cfg.GEX.RiskFreeRate, "GEXSTREAM_GEX_RISK_FREE_RATE")
	setDuration(&cfg.GEX.StalenessBound, "GEXSTREAM_GEX_STALENESS_BOUND")

	// ── Catalog / Spot ──
	setDuration(&cfg.Catalog.RefreshInterval, "GEXSTREAM_CATALOG_REFRESH_INTERVAL")
	setDuration(&cfg.Spot.PollInterval, "GEXSTREAM_SPOT_POLL_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "GEXSTREAM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "GEXSTREAM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "GEXSTREAM_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStr(&cfg.Mode, "GEXSTREAM_MODE")
	setStr(&cfg.LogLevel, "GEXSTREAM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
