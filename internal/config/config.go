// Package config defines the top-level configuration for gexstream and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by GEXSTREAM_* environment variables.
type Config struct {
	Deribit  DeribitConfig `toml:"deribit"`
	Feed     FeedConfig    `toml:"feed"`
	Store    StoreConfig   `toml:"store"`
	Journal  JournalConfig `toml:"journal"`
	GEX      GEXConfig     `toml:"gex"`
	Catalog  CatalogConfig `toml:"catalog"`
	Spot     SpotConfig    `toml:"spot"`
	Server   ServerConfig  `toml:"server"`
	Mode     string        `toml:"mode"`
	LogLevel string        `toml:"log_level"`
}

// DeribitConfig holds venue endpoints, credentials, and protocol timing.
type DeribitConfig struct {
	WsURL             string   `toml:"ws_url"`
	RestURL           string   `toml:"rest_url"`
	ClientID          string   `toml:"client_id"`
	ClientSecret      string   `toml:"client_secret"`
	Underlying        string   `toml:"underlying"`
	HeartbeatInterval int      `toml:"heartbeat_interval"` // seconds, as sent to public/set_heartbeat
	HeartbeatTimeout  duration `toml:"heartbeat_timeout"`  // silence tolerated before reconnect
	HandshakeTimeout  duration `toml:"handshake_timeout"`
}

// FeedConfig holds trade-feed delivery and reconnect parameters.
type FeedConfig struct {
	BufferSize     int      `toml:"buffer_size"`
	DedupWindow    int      `toml:"dedup_window"` // recently seen trade IDs retained
	BackoffInitial duration `toml:"backoff_initial"`
	BackoffMax     duration `toml:"backoff_max"`
	BackoffJitter  float64  `toml:"backoff_jitter"` // fraction of the delay, 0..1
	MaxRetries     int      `toml:"max_retries"`    // consecutive failed connects before fatal; 0 = retry forever
}

// StoreConfig selects and configures the snapshot store backend.
type StoreConfig struct {
	Backend string      `toml:"backend"` // "redis" or "memory"
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// JournalConfig holds the optional PostgreSQL trade journal settings.
type JournalConfig struct {
	Enabled      bool   `toml:"enabled"`
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// GEXConfig holds aggregation and recompute-policy parameters.
type GEXConfig struct {
	RecomputeTrades   int      `toml:"recompute_trades"`   // recompute after this many applied trades
	RecomputeInterval duration `toml:"recompute_interval"` // or after this much time, whichever first
	ExpiryWindowDays  int      `toml:"expiry_window_days"` // chain horizon
	MinDTEHours       float64  `toml:"min_dte_hours"`      // exclude contracts expiring sooner
	FlipSearchBand    float64  `toml:"flip_search_band"`   // fraction of spot where a flip is reported, 0 = unbounded
	TimeWeighted      bool     `toml:"time_weighted"`      // scale contributions by 1/sqrt(DTE days)
	RiskFreeRate      float64  `toml:"risk_free_rate"`
	StalenessBound    duration `toml:"staleness_bound"` // snapshot age after which the API flags it stale
}

// CatalogConfig holds instrument-catalog refresh settings.
type CatalogConfig struct {
	RefreshInterval duration `toml:"refresh_interval"`
}

// SpotConfig holds index-price polling settings.
type SpotConfig struct {
	PollInterval duration `toml:"poll_interval"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration wraps time.Duration for TOML decoding.
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Defaults returns a Config populated with sensible development defaults.
func Defaults() Config {
	return Config{
		Deribit: DeribitConfig{
			WsURL:             "wss://www.deribit.com/ws/api/v2",
			RestURL:           "https://www.deribit.com/api/v2/public",
			Underlying:        "BTC",
			HeartbeatInterval: 30,
			HeartbeatTimeout:  duration{45 * time.Second},
			HandshakeTimeout:  duration{15 * time.Second},
		},
		Feed: FeedConfig{
			BufferSize:     1024,
			DedupWindow:    4096,
			BackoffInitial: duration{2 * time.Second},
			BackoffMax:     duration{60 * time.Second},
			BackoffJitter:  0.2,
			MaxRetries:     0,
		},
		Store: StoreConfig{
			Backend: "redis",
			Redis: RedisConfig{
				Addr:       "localhost:6379",
				DB:         0,
				PoolSize:   20,
				MaxRetries: 3,
				TLSEnabled: false,
			},
		},
		Journal: JournalConfig{
			Enabled:      false,
			Host:         "localhost",
			Port:         5432,
			Database:     "gexstream",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		GEX: GEXConfig{
			RecomputeTrades:   10,
			RecomputeInterval: duration{5 * time.Second},
			ExpiryWindowDays:  30,
			MinDTEHours:       2,
			FlipSearchBand:    0.15,
			TimeWeighted:      true,
			RiskFreeRate:      0,
			StalenessBound:    duration{2 * time.Minute},
		},
		Catalog: CatalogConfig{
			RefreshInterval: duration{5 * time.Minute},
		},
		Spot: SpotConfig{
			PollInterval: duration{30 * time.Second},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"stream": true,
	"serve":  true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: stream, serve, full)", c.Mode))
	}
	if strings.EqualFold(c.Mode, "serve") && !c.Server.Enabled {
		errs = append(errs, "mode serve requires server.enabled = true")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Deribit
	if c.Deribit.WsURL == "" {
		errs = append(errs, "deribit: ws_url must not be empty")
	}
	if c.Deribit.RestURL == "" {
		errs = append(errs, "deribit: rest_url must not be empty")
	}
	if c.Deribit.Underlying == "" {
		errs = append(errs, "deribit: underlying must not be empty")
	}
	if c.Deribit.HeartbeatInterval < 10 {
		errs = append(errs, fmt.Sprintf("deribit: heartbeat_interval must be >= 10 (venue minimum), got %d", c.Deribit.HeartbeatInterval))
	}
	if c.Deribit.HeartbeatTimeout.Duration <= time.Duration(c.Deribit.HeartbeatInterval)*time.Second {
		errs = append(errs, "deribit: heartbeat_timeout must exceed heartbeat_interval")
	}

	// Feed
	if c.Feed.BufferSize < 1 {
		errs = append(errs, "feed: buffer_size must be >= 1")
	}
	if c.Feed.DedupWindow < 1 {
		errs = append(errs, "feed: dedup_window must be >= 1")
	}
	if c.Feed.BackoffInitial.Duration <= 0 {
		errs = append(errs, "feed: backoff_initial must be > 0")
	}
	if c.Feed.BackoffMax.Duration < c.Feed.BackoffInitial.Duration {
		errs = append(errs, "feed: backoff_max must be >= backoff_initial")
	}
	if c.Feed.BackoffJitter < 0 || c.Feed.BackoffJitter > 1 {
		errs = append(errs, fmt.Sprintf("feed: backoff_jitter must be in [0, 1], got %g", c.Feed.BackoffJitter))
	}
	if c.Feed.MaxRetries < 0 {
		errs = append(errs, "feed: max_retries must be >= 0 (0 = retry forever)")
	}

	// Store
	switch strings.ToLower(c.Store.Backend) {
	case "redis":
		if c.Store.Redis.Addr == "" {
			errs = append(errs, "store.redis: addr must not be empty")
		}
		if c.Store.Redis.PoolSize < 1 {
			errs = append(errs, "store.redis: pool_size must be >= 1")
		}
	case "memory":
	default:
		errs = append(errs, fmt.Sprintf("store: unknown backend %q (valid: redis, memory)", c.Store.Backend))
	}

	// Journal
	if c.Journal.Enabled {
		if strings.TrimSpace(c.Journal.DSN) == "" {
			if c.Journal.Host == "" {
				errs = append(errs, "journal: host must not be empty (or set journal.dsn)")
			}
			if c.Journal.Port <= 0 || c.Journal.Port > 65535 {
				errs = append(errs, fmt.Sprintf("journal: port must be 1-65535, got %d", c.Journal.Port))
			}
			if c.Journal.Database == "" {
				errs = append(errs, "journal: database must not be empty")
			}
		}
		if c.Journal.PoolMaxConns < 1 {
			errs = append(errs, "journal: pool_max_conns must be >= 1")
		}
		if c.Journal.PoolMinConns > c.Journal.PoolMaxConns {
			errs = append(errs, "journal: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// GEX
	if c.GEX.RecomputeTrades < 1 {
		errs = append(errs, "gex: recompute_trades must be >= 1")
	}
	if c.GEX.RecomputeInterval.Duration <= 0 {
		errs = append(errs, "gex: recompute_interval must be > 0")
	}
	if c.GEX.ExpiryWindowDays < 1 {
		errs = append(errs, "gex: expiry_window_days must be >= 1")
	}
	if c.GEX.FlipSearchBand < 0 || c.GEX.FlipSearchBand >= 1 {
		errs = append(errs, fmt.Sprintf("gex: flip_search_band must be in [0, 1), 0 disables the band, got %g", c.GEX.FlipSearchBand))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
