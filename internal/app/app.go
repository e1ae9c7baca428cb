// Package app provides the top-level application lifecycle for pairwatch.
// It wires the tick store, ingestion stream, monitor, and the optional Redis
// and PostgreSQL sinks, and runs them until cancelled.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"pairwatch/internal/config"
	"pairwatch/internal/feed"
	"pairwatch/internal/monitor"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the ingestion stream and the monitor,
// and blocks until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("pair", a.cfg.Pair.SymbolA+"/"+a.cfg.Pair.SymbolB),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	mode := strings.ToLower(a.cfg.Mode)
	switch mode {
	case "live", "replay":
		return a.runPipeline(ctx, deps, mode == "replay")
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// runPipeline runs the ingestion stream alongside the monitor under one
// errgroup. In replay mode the monitor additionally backtests the current
// series on every evaluation.
func (a *App) runPipeline(ctx context.Context, deps *Dependencies, replay bool) error {
	g, ctx := errgroup.WithContext(ctx)

	stream := feed.NewStream(a.cfg.Feed.WSURL, a.cfg.Symbols(), deps.Store, a.logger)
	g.Go(func() error {
		return stream.Run(ctx)
	})

	mon := monitor.New(monitor.Config{
		SymbolA:  strings.ToLower(a.cfg.Pair.SymbolA),
		SymbolB:  strings.ToLower(a.cfg.Pair.SymbolB),
		BarWidth: a.cfg.BarWidth(),
		Window:   a.cfg.Pair.Window,
		EntryZ:   a.cfg.Pair.EntryZ,
		ExitZ:    a.cfg.Pair.ExitZ,
		Interval: a.cfg.MonitorInterval(),
		Replay:   replay,
	}, deps.Store, deps.SignalBus, deps.StatCache, deps.Journal, a.logger)
	g.Go(func() error {
		return mon.Run(ctx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe
// to call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
