package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"pairwatch/internal/domain"
)

// StatCache implements domain.StatCache using Redis hashes. Each pair's
// latest snapshot lives at "pairstats:{a}:{b}" with one field per stat and a
// Unix-nanosecond "ts" field.
type StatCache struct {
	rdb *redis.Client
}

// NewStatCache creates a StatCache backed by the given Client.
func NewStatCache(c *Client) *StatCache {
	return &StatCache{rdb: c.Underlying()}
}

func statsKey(symbolA, symbolB string) string {
	return "pairstats:" + symbolA + ":" + symbolB
}

// SetPairStats stores the latest analytic snapshot for a pair.
func (sc *StatCache) SetPairStats(ctx context.Context, stats domain.PairStats) error {
	key := statsKey(stats.SymbolA, stats.SymbolB)
	fields := map[string]interface{}{
		"hedge_ratio": strconv.FormatFloat(stats.HedgeRatio, 'f', -1, 64),
		"spread":      strconv.FormatFloat(stats.Spread, 'f', -1, 64),
		"zscore":      strconv.FormatFloat(stats.ZScore, 'f', -1, 64),
		"z_defined":   strconv.FormatBool(stats.ZDefined),
		"ts":          strconv.FormatInt(stats.UpdatedAt.UnixNano(), 10),
	}
	if err := sc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set pair stats %s: %w", key, err)
	}
	return nil
}

// GetPairStats retrieves the latest snapshot for a pair. It returns
// domain.ErrNotFound when no snapshot has been written.
func (sc *StatCache) GetPairStats(ctx context.Context, symbolA, symbolB string) (domain.PairStats, error) {
	key := statsKey(symbolA, symbolB)
	vals, err := sc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.PairStats{}, fmt.Errorf("redis: get pair stats %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.PairStats{}, domain.ErrNotFound
	}

	stats := domain.PairStats{SymbolA: symbolA, SymbolB: symbolB}
	if v, ok := vals["hedge_ratio"]; ok {
		stats.HedgeRatio, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals["spread"]; ok {
		stats.Spread, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals["zscore"]; ok {
		stats.ZScore, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := vals["z_defined"]; ok {
		stats.ZDefined, _ = strconv.ParseBool(v)
	}
	if v, ok := vals["ts"]; ok {
		if ns, err := strconv.ParseInt(v, 10, 64); err == nil {
			stats.UpdatedAt = time.Unix(0, ns)
		}
	}
	return stats, nil
}

// Compile-time interface check.
var _ domain.StatCache = (*StatCache)(nil)
