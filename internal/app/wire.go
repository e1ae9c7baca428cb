package app

import (
	"context"
	"fmt"
	"log/slog"

	"pairwatch/internal/cache/redis"
	"pairwatch/internal/config"
	"pairwatch/internal/domain"
	"pairwatch/internal/store/postgres"
	"pairwatch/internal/ticks"
)

// Dependencies bundles everything the pipeline needs. SignalBus, StatCache
// and Journal are nil when the corresponding backend is disabled; the
// monitor treats nil sinks as log-only.
type Dependencies struct {
	Store     *ticks.Store
	SignalBus domain.SignalBus
	StatCache domain.StatCache
	Journal   domain.TradeJournal
}

// Wire constructs the concrete dependencies from the configuration and
// returns them together with a cleanup function that must be called on
// shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Store: ticks.NewStore(cfg.Store.MaxRows),
	}

	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })

		deps.SignalBus = redis.NewSignalBus(client)
		deps.StatCache = redis.NewStatCache(client)
		logger.Info("redis wired", slog.String("addr", cfg.Redis.Addr))
	}

	if cfg.Postgres.Enabled {
		client, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, client.Close)

		if cfg.Postgres.RunMigrations {
			if err := client.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Journal = postgres.NewBacktestStore(client.Pool())
		logger.Info("postgres wired", slog.String("database", cfg.Postgres.Database))
	}

	return deps, cleanup, nil
}
