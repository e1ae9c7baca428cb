// Package backtest replays a spread/z-score series through a single-position
// mean-reversion state machine, producing a trade log and an equity curve.
package backtest

import (
	"time"

	"pairwatch/internal/analytics"
	"pairwatch/internal/domain"
)

// Config holds the entry and exit thresholds for the state machine. EntryZ is
// the absolute z-score that opens a position; ExitZ is the level whose
// crossing closes it (typically 0).
type Config struct {
	EntryZ float64
	ExitZ  float64
}

// Result is the output of one backtest run. Equity is the cumulative sum of
// per-bar PnL, aligned to the filtered spread index. A position still open at
// the end of the series is not represented in Trades.
type Result struct {
	Trades []domain.Trade
	Equity []domain.PricePoint
}

// Run replays the series through the mean-reversion state machine. The
// spread and z-score columns must be aligned 1:1 with ts; positions where
// the z-score is undefined are filtered out before evaluation, so threshold
// comparisons only ever see defined values. Empty input yields an empty
// trade log and an empty equity curve.
//
// PnL attribution is deliberately simplified: while a position is open each
// bar contributes direction*(spread[t]-spread[t-1]) to the equity curve, and
// a closed trade records only the delta of its closing bar.
func Run(ts []time.Time, spread []float64, zscore []analytics.Value, cfg Config) Result {
	times, sp, z := filterDefined(ts, spread, zscore)
	if len(sp) == 0 {
		return Result{}
	}

	var (
		inPosition bool
		direction  domain.Direction
		entryTime  time.Time
		entryZ     float64
		trades     []domain.Trade
	)

	perBar := make([]float64, len(sp))

	var prevSpread float64
	seeded := false
	for t := range sp {
		if !seeded {
			// The first bar has no predecessor; it only seeds prevSpread.
			prevSpread = sp[t]
			seeded = true
			continue
		}

		zv := z[t]
		if !inPosition {
			switch {
			case zv >= cfg.EntryZ:
				inPosition = true
				direction = domain.DirectionShort
				entryTime = times[t]
				entryZ = zv
			case zv <= -cfg.EntryZ:
				inPosition = true
				direction = domain.DirectionLong
				entryTime = times[t]
				entryZ = zv
			}
		} else if exitHit(direction, zv, cfg.ExitZ) {
			trades = append(trades, domain.Trade{
				EntryTime: entryTime,
				ExitTime:  times[t],
				Direction: direction,
				EntryZ:    entryZ,
				ExitZ:     zv,
				PnL:       float64(direction) * (sp[t] - prevSpread),
			})
			inPosition = false
			direction = 0
		}

		if inPosition {
			perBar[t] = float64(direction) * (sp[t] - prevSpread)
		}
		prevSpread = sp[t]
	}

	equity := make([]domain.PricePoint, len(sp))
	var cum float64
	for i := range sp {
		cum += perBar[i]
		equity[i] = domain.PricePoint{Time: times[i], Value: cum}
	}

	return Result{Trades: trades, Equity: equity}
}

// exitHit reports whether the z-score has crossed the exit level against the
// open position: a long spread exits at or above it, a short at or below.
func exitHit(direction domain.Direction, z, exitZ float64) bool {
	if direction == domain.DirectionLong {
		return z >= exitZ
	}
	return z <= exitZ
}

// filterDefined drops positions whose z-score is undefined, keeping ts,
// spread and z aligned.
func filterDefined(ts []time.Time, spread []float64, zscore []analytics.Value) ([]time.Time, []float64, []float64) {
	times := make([]time.Time, 0, len(ts))
	sp := make([]float64, 0, len(ts))
	z := make([]float64, 0, len(ts))
	for i := range ts {
		if i >= len(spread) || i >= len(zscore) || !zscore[i].Defined {
			continue
		}
		times = append(times, ts[i])
		sp = append(sp, spread[i])
		z = append(z, zscore[i].Float64)
	}
	return times, sp, z
}
