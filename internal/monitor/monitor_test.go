package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairwatch/internal/analytics"
	"pairwatch/internal/domain"
	"pairwatch/internal/ticks"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

type fakeBus struct {
	mu        sync.Mutex
	published []domain.PairSignal
	streamed  int
}

func (f *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	var sig domain.PairSignal
	if err := json.Unmarshal(payload, &sig); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, sig)
	return nil
}

func (f *fakeBus) StreamAppend(_ context.Context, _ string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamed++
	return nil
}

type fakeStatCache struct {
	mu   sync.Mutex
	last *domain.PairStats
}

func (f *fakeStatCache) SetPairStats(_ context.Context, stats domain.PairStats) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = &stats
	return nil
}

func (f *fakeStatCache) GetPairStats(context.Context, string, string) (domain.PairStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.last == nil {
		return domain.PairStats{}, domain.ErrNotFound
	}
	return *f.last, nil
}

type fakeJournal struct {
	mu     sync.Mutex
	trades []domain.Trade
	calls  int
}

func (f *fakeJournal) InsertTrades(_ context.Context, _, _ string, trades []domain.Trade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, trades...)
	f.calls++
	return nil
}

func (f *fakeJournal) ListRecent(context.Context, string, string, int) ([]domain.JournaledTrade, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ---------------------------------------------------------------------------
// Synthetic market data
//
// Leg B trades at a flat 100; leg A at twice that plus a small sinusoidal
// wobble, so the hedge ratio is ~2 and the spread oscillates inside the
// entry band. bump adds a level shift to leg A over [bumpFrom, bumpTo).
// ---------------------------------------------------------------------------

func seedPair(store *ticks.Store, bars int, bump float64, bumpFrom, bumpTo int) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < bars; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		priceB := 100.0
		priceA := 2*priceB + 0.05*math.Sin(float64(i))
		if i >= bumpFrom && i < bumpTo {
			priceA += bump
		}
		store.Append("aaausdt", ts, priceA, 1)
		store.Append("bbbusdt", ts, priceB, 1)
	}
}

func testConfig() Config {
	return Config{
		SymbolA:  "aaausdt",
		SymbolB:  "bbbusdt",
		BarWidth: time.Second,
		Window:   50,
		EntryZ:   2.0,
		ExitZ:    0.0,
		Interval: time.Second,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestEvaluateNoData(t *testing.T) {
	store := ticks.NewStore(0)
	m := New(testConfig(), store, nil, nil, nil, testLogger())

	assert.Nil(t, m.Evaluate(context.Background()))
}

func TestEvaluateInsufficientHistory(t *testing.T) {
	store := ticks.NewStore(0)
	seedPair(store, 20, 0, 0, 0) // below the aligned-bars floor

	stats := &fakeStatCache{}
	m := New(testConfig(), store, nil, stats, nil, testLogger())

	assert.Nil(t, m.Evaluate(context.Background()))
	assert.Nil(t, stats.last, "stat cache must not be written before the gate")
}

func TestEvaluateQuietMarket(t *testing.T) {
	store := ticks.NewStore(0)
	seedPair(store, 200, 0, 0, 0)

	bus := &fakeBus{}
	stats := &fakeStatCache{}
	m := New(testConfig(), store, bus, stats, nil, testLogger())

	sig := m.Evaluate(context.Background())
	assert.Nil(t, sig, "wobble inside the band must not signal")
	assert.Empty(t, bus.published)

	require.NotNil(t, stats.last)
	assert.InDelta(t, 2.0, stats.last.HedgeRatio, 0.01)
	assert.True(t, stats.last.ZDefined)
	assert.Less(t, math.Abs(stats.last.ZScore), 2.0)
}

func TestEvaluateEmitsEntrySignal(t *testing.T) {
	store := ticks.NewStore(0)
	// Level shift on the final bars pushes the latest z-score past the
	// entry threshold.
	seedPair(store, 200, 1.0, 197, 200)

	bus := &fakeBus{}
	stats := &fakeStatCache{}
	m := New(testConfig(), store, bus, stats, nil, testLogger())

	sig := m.Evaluate(context.Background())
	require.NotNil(t, sig)
	assert.Equal(t, domain.SignalEntry, sig.Kind)
	assert.Equal(t, domain.DirectionShort, sig.Direction)
	assert.GreaterOrEqual(t, sig.ZScore, 2.0)
	assert.NotEmpty(t, sig.ID)
	assert.Equal(t, "aaausdt", sig.SymbolA)
	assert.Equal(t, "bbbusdt", sig.SymbolB)

	require.Len(t, bus.published, 1)
	assert.Equal(t, sig.Kind, bus.published[0].Kind)
	assert.Equal(t, 1, bus.streamed)
}

func TestReplayJournalsClosedTrades(t *testing.T) {
	store := ticks.NewStore(0)
	// Mid-series anomaly opens and closes one short round trip by the end.
	seedPair(store, 200, 1.0, 150, 155)

	journal := &fakeJournal{}
	cfg := testConfig()
	cfg.Replay = true
	m := New(cfg, store, nil, nil, journal, testLogger())

	m.Evaluate(context.Background())

	require.Len(t, journal.trades, 1)
	tr := journal.trades[0]
	assert.Equal(t, domain.DirectionShort, tr.Direction)
	assert.GreaterOrEqual(t, tr.EntryZ, 2.0)
	assert.LessOrEqual(t, tr.ExitZ, 0.0)
	assert.True(t, tr.ExitTime.After(tr.EntryTime))
}

func TestSignalForExitOnZeroCross(t *testing.T) {
	m := New(testConfig(), ticks.NewStore(0), nil, nil, nil, testLogger())
	at := time.Now().UTC()

	// Same sign on the last two bars, inside the entry band: no signal.
	assert.Nil(t, m.signalFor(analytics.Def(1.2), analytics.Def(0.4), 0.5, 2.0, at))

	// Sign flip between the last two bars raises an exit.
	sig := m.signalFor(analytics.Def(-0.3), analytics.Def(1.2), -0.1, 2.0, at)
	require.NotNil(t, sig)
	assert.Equal(t, domain.SignalExit, sig.Kind)

	// An undefined previous bar cannot have crossed anything.
	assert.Nil(t, m.signalFor(analytics.Def(-0.3), analytics.Undef(), -0.1, 2.0, at))
}

func TestSignalForUndefinedNeverSignals(t *testing.T) {
	m := New(testConfig(), ticks.NewStore(0), nil, nil, nil, testLogger())

	assert.Nil(t, m.signalFor(analytics.Undef(), analytics.Def(1.0), 0, 2.0, time.Now()))
}

func TestSignalForLongEntry(t *testing.T) {
	m := New(testConfig(), ticks.NewStore(0), nil, nil, nil, testLogger())

	sig := m.signalFor(analytics.Def(-2.4), analytics.Undef(), -1.0, 2.0, time.Now())
	require.NotNil(t, sig)
	assert.Equal(t, domain.SignalEntry, sig.Kind)
	assert.Equal(t, domain.DirectionLong, sig.Direction)
}

func TestEvaluateEmitsExitSignal(t *testing.T) {
	store := ticks.NewStore(0)
	// An alternating wobble flips the spread's sign on every bar, so the
	// last two bars of the series always straddle zero while |z| stays
	// inside the entry band.
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		wobble := 1.0
		if i%2 == 1 {
			wobble = -1.0
		}
		store.Append("aaausdt", ts, 200+wobble, 1)
		store.Append("bbbusdt", ts, 100, 1)
	}

	bus := &fakeBus{}
	m := New(testConfig(), store, bus, nil, nil, testLogger())

	// The crossing is a property of the series, not of evaluation history:
	// the very first evaluation must already raise the exit, and a rerun
	// over the unchanged series raises it again.
	for pass := 0; pass < 2; pass++ {
		sig := m.Evaluate(context.Background())
		require.NotNil(t, sig, "pass %d", pass)
		assert.Equal(t, domain.SignalExit, sig.Kind)
		assert.Less(t, math.Abs(sig.ZScore), 2.0)
	}
	assert.Len(t, bus.published, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	store := ticks.NewStore(0)
	cfg := testConfig()
	cfg.Interval = 10 * time.Millisecond
	m := New(cfg, store, nil, nil, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
