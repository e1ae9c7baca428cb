package domain

import "time"

// Tick is a single trade observation for one symbol. Ticks are immutable
// once appended to the store.
type Tick struct {
	Time  time.Time
	Price float64
	Qty   float64
}

// Bar is an OHLCV aggregate of the ticks falling into one fixed-width time
// bucket. Bars are derived on demand and never stored.
type Bar struct {
	Start  time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PricePoint is one observation of an ordered price series.
type PricePoint struct {
	Time  time.Time
	Value float64
}
