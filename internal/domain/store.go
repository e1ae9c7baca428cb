package domain

import (
	"context"
	"time"
)

// JournaledTrade is a closed backtest trade enriched with the pair it was
// simulated for, as persisted by the trade journal.
type JournaledTrade struct {
	ID        int64
	SymbolA   string
	SymbolB   string
	Trade     Trade
	CreatedAt time.Time
}

// TradeJournal persists closed simulated trades. Duplicate round trips for
// the same pair and entry/exit times are silently skipped.
type TradeJournal interface {
	InsertTrades(ctx context.Context, symbolA, symbolB string, trades []Trade) error
	ListRecent(ctx context.Context, symbolA, symbolB string, limit int) ([]JournaledTrade, error)
}
