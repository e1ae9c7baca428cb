// Package ticks provides the bounded in-memory tick store and the on-demand
// OHLCV resampler that the analytics pipeline reads from.
package ticks

import (
	"sort"
	"sync"
	"time"

	"pairwatch/internal/domain"
)

// DefaultMaxRows is the per-symbol buffer capacity used when the store is
// constructed with a non-positive limit.
const DefaultMaxRows = 100_000

// Store buffers ticks per symbol in arrival order inside a bounded sliding
// window. Symbols are created lazily on first append. One writer may run
// concurrently with any number of readers; each symbol has its own lock, so
// operations on different symbols never contend.
type Store struct {
	maxRows int

	mu      sync.RWMutex
	buffers map[string]*buffer
}

type buffer struct {
	mu    sync.RWMutex
	ticks []domain.Tick
}

// NewStore creates a Store whose per-symbol buffers hold at most maxRows
// ticks. Older ticks are evicted as new ones arrive.
func NewStore(maxRows int) *Store {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Store{
		maxRows: maxRows,
		buffers: make(map[string]*buffer),
	}
}

// Append adds a tick to the symbol's buffer, creating the buffer if this is
// the first tick for the symbol. Timestamps are not validated; out-of-order
// ticks are stored as received.
func (s *Store) Append(symbol string, ts time.Time, price, qty float64) {
	b := s.buffer(symbol)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.ticks = append(b.ticks, domain.Tick{Time: ts, Price: price, Qty: qty})
	if n := len(b.ticks); n > s.maxRows {
		b.ticks = b.ticks[n-s.maxRows:]
	}
}

// Ticks returns a copy of the symbol's current buffer contents in arrival
// order. Unknown symbols yield an empty slice.
func (s *Store) Ticks(symbol string) []domain.Tick {
	s.mu.RLock()
	b, ok := s.buffers[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]domain.Tick, len(b.ticks))
	copy(out, b.ticks)
	return out
}

// Len reports how many ticks are currently buffered for the symbol.
func (s *Store) Len(symbol string) int {
	s.mu.RLock()
	b, ok := s.buffers[symbol]
	s.mu.RUnlock()
	if !ok {
		return 0
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ticks)
}

// Resample groups the symbol's ticks into fixed-width buckets aligned to the
// Unix epoch (bucket start = floor(unix_ms / width) * width) and returns one
// OHLCV bar per non-empty bucket, ordered by bucket start. Buckets without
// ticks are omitted, not zero-filled. The result reflects whichever ticks had
// landed when the snapshot was taken; concurrent appends are safe.
func (s *Store) Resample(symbol string, width time.Duration) []domain.Bar {
	snapshot := s.Ticks(symbol)
	if len(snapshot) == 0 || width <= 0 {
		return nil
	}

	widthMs := width.Milliseconds()
	if widthMs <= 0 {
		return nil
	}

	byBucket := make(map[int64]*domain.Bar)
	starts := make([]int64, 0)

	for _, t := range snapshot {
		ms := t.Time.UnixMilli()
		start := ms - mod(ms, widthMs)

		bar, ok := byBucket[start]
		if !ok {
			bar = &domain.Bar{
				Start: time.UnixMilli(start).UTC(),
				Open:  t.Price,
				High:  t.Price,
				Low:   t.Price,
			}
			byBucket[start] = bar
			starts = append(starts, start)
		}
		if t.Price > bar.High {
			bar.High = t.Price
		}
		if t.Price < bar.Low {
			bar.Low = t.Price
		}
		bar.Close = t.Price
		bar.Volume += t.Qty
	}

	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	bars := make([]domain.Bar, 0, len(starts))
	for _, start := range starts {
		bars = append(bars, *byBucket[start])
	}
	return bars
}

// buffer returns the symbol's buffer, creating it on first use.
func (s *Store) buffer(symbol string) *buffer {
	s.mu.RLock()
	b, ok := s.buffers[symbol]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[symbol]; ok {
		return b
	}
	b = &buffer{}
	s.buffers[symbol] = b
	return b
}

// mod is a floored modulo, correct for timestamps before the epoch.
func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
