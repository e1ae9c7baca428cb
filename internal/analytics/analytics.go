// Package analytics computes the pair statistics that drive the signal
// logic: series alignment, hedge ratio, spread, rolling stats and z-score.
// All functions are pure and operate on snapshots; callers re-run them on
// their own refresh cadence.
package analytics

import (
	"math"
	"sort"
	"time"

	"pairwatch/internal/domain"
)

// minHedgeSamples is the number of aligned observations required before the
// ratio estimator is trusted over the neutral fallback of 1.0.
const minHedgeSamples = 10

// maxHedgeRatio bounds the estimator against degenerate input; results
// outside (0, maxHedgeRatio] fall back to 1.0.
const maxHedgeRatio = 1000.0

// Closes projects a bar sequence onto its close prices.
func Closes(bars []domain.Bar) []domain.PricePoint {
	if len(bars) == 0 {
		return nil
	}
	out := make([]domain.PricePoint, len(bars))
	for i, b := range bars {
		out[i] = domain.PricePoint{Time: b.Start, Value: b.Close}
	}
	return out
}

// Align inner-joins two ordered price series on exact timestamp equality
// using a sorted merge. It returns the common timestamps and the two value
// columns, aligned 1:1.
func Align(a, b []domain.PricePoint) (ts []time.Time, av, bv []float64) {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Time.Before(b[j].Time):
			i++
		case b[j].Time.Before(a[i].Time):
			j++
		default:
			ts = append(ts, a[i].Time)
			av = append(av, a[i].Value)
			bv = append(bv, b[j].Value)
			i++
			j++
		}
	}
	return ts, av, bv
}

// EstimateHedgeRatio estimates the hedge ratio of a over b as the median of
// the per-timestamp ratio a/b across their aligned index. The median is
// robust to outliers and intentionally simpler than a regression estimator.
// With fewer than 10 aligned observations, or a result that is NaN or
// outside (0, 1000], it returns the neutral ratio 1.0.
func EstimateHedgeRatio(a, b []domain.PricePoint) float64 {
	_, av, bv := Align(a, b)
	if len(av) < minHedgeSamples {
		return 1.0
	}

	ratios := make([]float64, len(av))
	for i := range av {
		ratios[i] = av[i] / bv[i]
	}

	h := median(ratios)
	if math.IsNaN(h) || h <= 0 || h > maxHedgeRatio {
		return 1.0
	}
	return h
}

// Spread computes a - hedgeRatio*b elementwise over an aligned index.
func Spread(av, bv []float64, hedgeRatio float64) []float64 {
	out := make([]float64, len(av))
	for i := range av {
		out[i] = av[i] - hedgeRatio*bv[i]
	}
	return out
}

// RollingStats computes the trailing mean and sample standard deviation of
// the spread over the given window. A position produces a defined mean once
// window/2 observations are available, and a defined std once additionally
// at least two observations exist.
func RollingStats(spread []float64, window int) (mean, std []Value) {
	mean = make([]Value, len(spread))
	std = make([]Value, len(spread))

	minPeriods := window / 2
	if minPeriods < 1 {
		minPeriods = 1
	}

	for i := range spread {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		n := i - lo + 1
		if n < minPeriods {
			continue
		}

		var sum float64
		for _, v := range spread[lo : i+1] {
			sum += v
		}
		m := sum / float64(n)
		mean[i] = Def(m)

		if n < 2 {
			continue
		}
		var ss float64
		for _, v := range spread[lo : i+1] {
			d := v - m
			ss += d * d
		}
		std[i] = Def(math.Sqrt(ss / float64(n-1)))
	}
	return mean, std
}

// ZScore computes (spread - mean) / std elementwise. The result is undefined
// wherever mean or std is undefined or std is zero; a zero std never yields
// an infinite z.
func ZScore(spread []float64, mean, std []Value) []Value {
	out := make([]Value, len(spread))
	for i := range spread {
		if !mean[i].Defined || !std[i].Defined || std[i].Float64 == 0 {
			continue
		}
		out[i] = Def((spread[i] - mean[i].Float64) / std[i].Float64)
	}
	return out
}

// median returns the median of values, averaging the two middle elements for
// even counts. The input slice is not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
