package domain

import "time"

// SignalKind distinguishes entry opportunities from exit alerts.
type SignalKind string

const (
	SignalEntry SignalKind = "entry"
	SignalExit  SignalKind = "exit"
)

// PairSignal is emitted by the live monitor when the pair's z-score crosses
// the configured entry threshold, or crosses back through zero while the
// spread was stretched.
type PairSignal struct {
	ID         string     `json:"id"`
	SymbolA    string     `json:"symbol_a"`
	SymbolB    string     `json:"symbol_b"`
	Kind       SignalKind `json:"kind"`
	Direction  Direction  `json:"direction,omitempty"`
	ZScore     float64    `json:"zscore"`
	Spread     float64    `json:"spread"`
	HedgeRatio float64    `json:"hedge_ratio"`
	At         time.Time  `json:"at"`
}

// PairStats is the latest analytic snapshot for a pair, cached for external
// consumers (dashboards and the like).
type PairStats struct {
	SymbolA    string
	SymbolB    string
	HedgeRatio float64
	Spread     float64
	ZScore     float64
	ZDefined   bool
	UpdatedAt  time.Time
}
