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
// built-in defaults, applies PAIRWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
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

// applyEnvOverrides reads well-known PAIRWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject connection secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Pair ──
	setStr(&cfg.Pair.SymbolA, "PAIRWATCH_PAIR_SYMBOL_A")
	setStr(&cfg.Pair.SymbolB, "PAIRWATCH_PAIR_SYMBOL_B")
	setDuration(&cfg.Pair.BarWidth, "PAIRWATCH_PAIR_BAR_WIDTH")
	setInt(&cfg.Pair.Window, "PAIRWATCH_PAIR_WINDOW")
	setFloat64(&cfg.Pair.EntryZ, "PAIRWATCH_PAIR_ENTRY_Z")
	setFloat64(&cfg.Pair.ExitZ, "PAIRWATCH_PAIR_EXIT_Z")

	// ── Store / feed / monitor ──
	setInt(&cfg.Store.MaxRows, "PAIRWATCH_STORE_MAX_ROWS")
	setStr(&cfg.Feed.WSURL, "PAIRWATCH_FEED_WS_URL")
	setDuration(&cfg.Monitor.Interval, "PAIRWATCH_MONITOR_INTERVAL")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "PAIRWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "PAIRWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PAIRWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PAIRWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PAIRWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PAIRWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PAIRWATCH_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "PAIRWATCH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "PAIRWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PAIRWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PAIRWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PAIRWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PAIRWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PAIRWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PAIRWATCH_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PAIRWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PAIRWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PAIRWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PAIRWATCH_MODE")
	setStr(&cfg.LogLevel, "PAIRWATCH_LOG_LEVEL")
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

// BarWidth returns the configured bar width as a plain time.Duration.
func (c *Config) BarWidth() time.Duration { return c.Pair.BarWidth.Duration }

// MonitorInterval returns the evaluation cadence as a plain time.Duration.
func (c *Config) MonitorInterval() time.Duration { return c.Monitor.Interval.Duration }

// Symbols returns the subscribed symbol set in lowercase.
func (c *Config) Symbols() []string {
	return []string{strings.ToLower(c.Pair.SymbolA), strings.ToLower(c.Pair.SymbolB)}
}
