package domain

import "context"

// SignalBus publishes pair signals to interested consumers. Implementations
// may also append to a durable stream for late subscribers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// StatCache stores the latest analytic snapshot per pair.
type StatCache interface {
	SetPairStats(ctx context.Context, stats PairStats) error
	GetPairStats(ctx context.Context, symbolA, symbolB string) (PairStats, error)
}
