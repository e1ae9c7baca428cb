package ticks

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func TestAppendCreatesSymbolLazily(t *testing.T) {
	s := NewStore(10)

	assert.Empty(t, s.Ticks("btcusdt"))
	assert.Equal(t, 0, s.Len("btcusdt"))

	s.Append("btcusdt", ms(1000), 100.0, 0.5)

	got := s.Ticks("btcusdt")
	require.Len(t, got, 1)
	assert.Equal(t, 100.0, got[0].Price)
	assert.Equal(t, 0.5, got[0].Qty)
	assert.Equal(t, ms(1000), got[0].Time)
}

func TestBoundedness(t *testing.T) {
	const maxRows = 5
	s := NewStore(maxRows)

	for i := 0; i < 8; i++ {
		s.Append("btcusdt", ms(int64(i*100)), float64(i), 1)
	}

	got := s.Ticks("btcusdt")
	require.Len(t, got, maxRows)

	// Exactly the last maxRows ticks, in arrival order.
	for i, tick := range got {
		assert.Equal(t, float64(i+3), tick.Price)
	}
}

func TestBuffersAreIndependent(t *testing.T) {
	s := NewStore(3)

	for i := 0; i < 5; i++ {
		s.Append("btcusdt", ms(int64(i)), float64(i), 1)
	}
	s.Append("ethusdt", ms(0), 42.0, 1)

	assert.Equal(t, 3, s.Len("btcusdt"))
	assert.Equal(t, 1, s.Len("ethusdt"))
}

func TestResampleOHLCV(t *testing.T) {
	s := NewStore(0)

	// Three ticks inside the [10s, 11s) bucket.
	s.Append("btcusdt", ms(10_100), 101, 1)
	s.Append("btcusdt", ms(10_500), 99, 2)
	s.Append("btcusdt", ms(10_900), 100, 3)
	// One tick two buckets later; the [11s, 12s) bucket stays empty.
	s.Append("btcusdt", ms(12_250), 105, 4)

	bars := s.Resample("btcusdt", time.Second)
	require.Len(t, bars, 2)

	first := bars[0]
	assert.Equal(t, ms(10_000), first.Start)
	assert.Equal(t, 101.0, first.Open)
	assert.Equal(t, 101.0, first.High)
	assert.Equal(t, 99.0, first.Low)
	assert.Equal(t, 100.0, first.Close)
	assert.Equal(t, 6.0, first.Volume)

	second := bars[1]
	assert.Equal(t, ms(12_000), second.Start)
	assert.Equal(t, 105.0, second.Open)
	assert.Equal(t, 105.0, second.Close)
	assert.Equal(t, 4.0, second.Volume)
}

func TestResampleBucketAlignment(t *testing.T) {
	s := NewStore(0)

	// 90s after the epoch with 1m buckets must land in the [60s, 120s)
	// bucket, not a bucket anchored at the first tick.
	s.Append("btcusdt", ms(90_000), 10, 1)

	bars := s.Resample("btcusdt", time.Minute)
	require.Len(t, bars, 1)
	assert.Equal(t, ms(60_000), bars[0].Start)
}

func TestResampleOutOfOrderTicks(t *testing.T) {
	s := NewStore(0)

	s.Append("btcusdt", ms(1_500), 10, 1)
	s.Append("btcusdt", ms(500), 20, 1)

	bars := s.Resample("btcusdt", time.Second)
	require.Len(t, bars, 2)
	assert.Equal(t, ms(0), bars[0].Start)
	assert.Equal(t, 20.0, bars[0].Open)
	assert.Equal(t, ms(1_000), bars[1].Start)
	assert.Equal(t, 10.0, bars[1].Open)
}

func TestResampleUnknownSymbol(t *testing.T) {
	s := NewStore(0)
	assert.Empty(t, s.Resample("nope", time.Second))
}

func TestResampleIdempotentReads(t *testing.T) {
	s := NewStore(0)
	for i := 0; i < 100; i++ {
		s.Append("btcusdt", ms(int64(i*137)), float64(100+i%7), float64(i%3))
	}

	a := s.Resample("btcusdt", time.Second)
	b := s.Resample("btcusdt", time.Second)
	assert.Equal(t, a, b)
}

func TestConcurrentAppendAndRead(t *testing.T) {
	s := NewStore(500)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			s.Append("btcusdt", ms(int64(i*10)), float64(i), 1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Ticks("btcusdt")
			s.Resample("btcusdt", time.Second)
		}
	}()

	wg.Wait()
	assert.Equal(t, 500, s.Len("btcusdt"))
}
