// Package monitor periodically reruns the analytics pipeline over the live
// tick store and raises entry/exit signals for the configured pair. It is
// the in-process stand-in for the refresh loop a dashboard would drive.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"pairwatch/internal/analytics"
	"pairwatch/internal/backtest"
	"pairwatch/internal/domain"
	"pairwatch/internal/ticks"
)

// signalChannel is the pub/sub channel live signals are published to.
const signalChannel = "signals"

// signalStream is the capped stream that retains recent signals for late
// consumers.
const signalStream = "signals:log"

// minAlignedBars is the floor on aligned history before any signal is
// evaluated, regardless of the configured window.
const minAlignedBars = 30

// Config holds the pair parameters and evaluation cadence.
type Config struct {
	SymbolA  string
	SymbolB  string
	BarWidth time.Duration
	Window   int
	EntryZ   float64
	ExitZ    float64
	Interval time.Duration

	// Replay enables the backtest pass on every evaluation; closed trades
	// are journaled when a journal is configured.
	Replay bool
}

// Monitor evaluates the pair on a fixed cadence. The bus, stat cache and
// journal are all optional; a nil dependency simply skips that output.
type Monitor struct {
	cfg     Config
	store   *ticks.Store
	bus     domain.SignalBus
	stats   domain.StatCache
	journal domain.TradeJournal
	logger  *slog.Logger
}

// New creates a Monitor reading from the given store.
func New(cfg Config, store *ticks.Store, bus domain.SignalBus, stats domain.StatCache, journal domain.TradeJournal, logger *slog.Logger) *Monitor {
	return &Monitor{
		cfg:     cfg,
		store:   store,
		bus:     bus,
		stats:   stats,
		journal: journal,
		logger:  logger.With(slog.String("component", "monitor")),
	}
}

// Run evaluates the pair every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("monitor started",
		slog.String("symbol_a", m.cfg.SymbolA),
		slog.String("symbol_b", m.cfg.SymbolB),
		slog.Duration("bar_width", m.cfg.BarWidth),
		slog.Int("window", m.cfg.Window),
		slog.Float64("entry_z", m.cfg.EntryZ),
	)
	defer m.logger.Info("monitor stopped")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Evaluate(ctx)
		}
	}
}

// Evaluate runs one pass of the pipeline: resample both legs, align, compute
// analytics, update the stat cache, and emit at most one signal. It returns
// the emitted signal, or nil when the pair has no signal or insufficient
// data. It never returns an error; data scarcity and output failures degrade
// to logs.
func (m *Monitor) Evaluate(ctx context.Context) *domain.PairSignal {
	barsA := m.store.Resample(m.cfg.SymbolA, m.cfg.BarWidth)
	barsB := m.store.Resample(m.cfg.SymbolB, m.cfg.BarWidth)
	if len(barsA) == 0 || len(barsB) == 0 {
		m.logger.Debug("waiting for data",
			slog.Int("bars_a", len(barsA)),
			slog.Int("bars_b", len(barsB)),
		)
		return nil
	}

	closesA := analytics.Closes(barsA)
	closesB := analytics.Closes(barsB)
	ts, av, bv := analytics.Align(closesA, closesB)

	need := m.cfg.Window
	if need < minAlignedBars {
		need = minAlignedBars
	}
	if len(ts) < need {
		m.logger.Debug("collecting data",
			slog.Int("aligned_bars", len(ts)),
			slog.Int("needed", need),
		)
		return nil
	}

	hedgeRatio := analytics.EstimateHedgeRatio(closesA, closesB)
	spread := analytics.Spread(av, bv, hedgeRatio)
	mean, std := analytics.RollingStats(spread, m.cfg.Window)
	zscore := analytics.ZScore(spread, mean, std)

	last := len(spread) - 1
	curZ := zscore[last]
	var prevZ analytics.Value
	if last > 0 {
		prevZ = zscore[last-1]
	}

	m.writeStats(ctx, hedgeRatio, spread[last], curZ, ts[last])

	if m.cfg.Replay {
		m.replay(ctx, ts, spread, zscore)
	}

	sig := m.signalFor(curZ, prevZ, spread[last], hedgeRatio, ts[last])
	if sig == nil {
		return nil
	}

	m.publish(ctx, sig)
	return sig
}

// signalFor decides whether the latest z-score warrants a signal: an entry
// when |z| reaches the entry threshold, an exit when z crossed zero between
// the last two bars. An undefined z never signals.
func (m *Monitor) signalFor(z, prev analytics.Value, spread, hedgeRatio float64, at time.Time) *domain.PairSignal {
	if !z.Defined {
		return nil
	}

	sig := &domain.PairSignal{
		ID:         uuid.NewString(),
		SymbolA:    m.cfg.SymbolA,
		SymbolB:    m.cfg.SymbolB,
		ZScore:     z.Float64,
		Spread:     spread,
		HedgeRatio: hedgeRatio,
		At:         at,
	}

	if math.Abs(z.Float64) >= m.cfg.EntryZ {
		sig.Kind = domain.SignalEntry
		if z.Float64 > 0 {
			sig.Direction = domain.DirectionShort
		} else {
			sig.Direction = domain.DirectionLong
		}
		return sig
	}

	if prev.Defined && signum(prev.Float64) != signum(z.Float64) {
		sig.Kind = domain.SignalExit
		return sig
	}

	return nil
}

// replay runs the backtest over the current series and journals any closed
// trades.
func (m *Monitor) replay(ctx context.Context, ts []time.Time, spread []float64, zscore []analytics.Value) {
	result := backtest.Run(ts, spread, zscore, backtest.Config{
		EntryZ: m.cfg.EntryZ,
		ExitZ:  m.cfg.ExitZ,
	})

	var finalEquity float64
	if n := len(result.Equity); n > 0 {
		finalEquity = result.Equity[n-1].Value
	}
	m.logger.Info("replay pass",
		slog.Int("trades", len(result.Trades)),
		slog.Float64("final_equity", finalEquity),
	)

	if m.journal == nil || len(result.Trades) == 0 {
		return
	}
	if err := m.journal.InsertTrades(ctx, m.cfg.SymbolA, m.cfg.SymbolB, result.Trades); err != nil {
		m.logger.Warn("journal insert failed", slog.String("error", err.Error()))
	}
}

// writeStats pushes the latest snapshot to the stat cache, if any.
func (m *Monitor) writeStats(ctx context.Context, hedgeRatio, spread float64, z analytics.Value, at time.Time) {
	if m.stats == nil {
		return
	}
	err := m.stats.SetPairStats(ctx, domain.PairStats{
		SymbolA:    m.cfg.SymbolA,
		SymbolB:    m.cfg.SymbolB,
		HedgeRatio: hedgeRatio,
		Spread:     spread,
		ZScore:     z.Float64,
		ZDefined:   z.Defined,
		UpdatedAt:  at,
	})
	if err != nil {
		m.logger.Warn("stat cache write failed", slog.String("error", err.Error()))
	}
}

// publish sends the signal to the bus and logs it.
func (m *Monitor) publish(ctx context.Context, sig *domain.PairSignal) {
	m.logger.Info("pair signal",
		slog.String("kind", string(sig.Kind)),
		slog.String("direction", sig.Direction.String()),
		slog.Float64("zscore", sig.ZScore),
		slog.Float64("spread", sig.Spread),
		slog.Float64("hedge_ratio", sig.HedgeRatio),
	)

	if m.bus == nil {
		return
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		m.logger.Warn("signal marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := m.bus.Publish(ctx, signalChannel, payload); err != nil {
		m.logger.Warn("signal publish failed", slog.String("error", err.Error()))
	}
	if err := m.bus.StreamAppend(ctx, signalStream, payload); err != nil {
		m.logger.Warn("signal stream append failed", slog.String("error", err.Error()))
	}
}

// signum is the three-valued sign used for the zero-cross exit check.
func signum(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 0
	}
}
