// Package config defines the pairwatch configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PAIRWATCH_* environment
// variables.
type Config struct {
	Pair     PairConfig     `toml:"pair"`
	Store    StoreConfig    `toml:"store"`
	Feed     FeedConfig     `toml:"feed"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PairConfig selects the instrument pair and the signal parameters.
type PairConfig struct {
	SymbolA  string   `toml:"symbol_a"`
	SymbolB  string   `toml:"symbol_b"`
	BarWidth duration `toml:"bar_width"`
	Window   int      `toml:"window"`
	EntryZ   float64  `toml:"entry_z"`
	ExitZ    float64  `toml:"exit_z"`
}

// StoreConfig bounds the in-memory tick buffers.
type StoreConfig struct {
	MaxRows int `toml:"max_rows"`
}

// FeedConfig holds the market-data endpoint.
type FeedConfig struct {
	WSURL string `toml:"ws_url"`
}

// MonitorConfig controls the live evaluation cadence.
type MonitorConfig struct {
	Interval duration `toml:"interval"`
}

// RedisConfig holds Redis connection parameters for the signal bus and stat
// cache. When disabled, signals are log-only.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds connection parameters for the trade journal. When
// disabled, closed trades are not persisted.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "1m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the stock parameters: the
// btcusdt/ethusdt pair on one-minute bars with a 100-bar window and a 2.0
// entry threshold.
func Defaults() Config {
	return Config{
		Pair: PairConfig{
			SymbolA:  "btcusdt",
			SymbolB:  "ethusdt",
			BarWidth: duration{time.Minute},
			Window:   100,
			EntryZ:   2.0,
			ExitZ:    0.0,
		},
		Store: StoreConfig{
			MaxRows: 100_000,
		},
		Feed: FeedConfig{
			WSURL: "wss://stream.binance.com:9443/stream",
		},
		Monitor: MonitorConfig{
			Interval: duration{5 * time.Second},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   10,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Mode:     "live",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"live":   true,
	"replay": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: live, replay)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Pair.SymbolA == "" || c.Pair.SymbolB == "" {
		errs = append(errs, "pair: symbol_a and symbol_b must both be set")
	}
	if c.Pair.SymbolA != "" && c.Pair.SymbolA == c.Pair.SymbolB {
		errs = append(errs, "pair: symbol_a and symbol_b must differ")
	}
	if c.Pair.BarWidth.Duration <= 0 {
		errs = append(errs, "pair: bar_width must be positive")
	}
	if c.Pair.Window < 2 {
		errs = append(errs, fmt.Sprintf("pair: window must be at least 2, got %d", c.Pair.Window))
	}
	if c.Pair.EntryZ <= c.Pair.ExitZ {
		errs = append(errs, fmt.Sprintf("pair: entry_z (%g) must exceed exit_z (%g)", c.Pair.EntryZ, c.Pair.ExitZ))
	}
	if c.Pair.ExitZ < 0 {
		errs = append(errs, "pair: exit_z must not be negative")
	}

	if c.Store.MaxRows <= 0 {
		errs = append(errs, "store: max_rows must be positive")
	}
	if c.Feed.WSURL == "" {
		errs = append(errs, "feed: ws_url must not be empty")
	}
	if c.Monitor.Interval.Duration <= 0 {
		errs = append(errs, "monitor: interval must be positive")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	if c.Postgres.Enabled && strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: invalid port %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
