package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pairwatch/internal/domain"
)

// BacktestStore implements domain.TradeJournal using PostgreSQL.
type BacktestStore struct {
	pool *pgxpool.Pool
}

// NewBacktestStore creates a new BacktestStore backed by the given pool.
func NewBacktestStore(pool *pgxpool.Pool) *BacktestStore {
	return &BacktestStore{pool: pool}
}

// InsertTrades inserts closed trades using a pgx Batch. Round trips already
// journaled for the same pair and entry/exit times are silently skipped via
// ON CONFLICT DO NOTHING, so repeated replays over overlapping series are
// idempotent.
func (s *BacktestStore) InsertTrades(ctx context.Context, symbolA, symbolB string, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	const query = `
		INSERT INTO backtest_trades (
			symbol_a, symbol_b, entry_time, exit_time,
			direction, entry_z, exit_z, pnl
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol_a, symbol_b, entry_time, exit_time) DO NOTHING`

	for _, t := range trades {
		batch.Queue(query,
			symbolA, symbolB, t.EntryTime, t.ExitTime,
			int16(t.Direction), t.EntryZ, t.ExitZ, t.PnL,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range trades {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert trade batch item %d: %w", i, err)
		}
	}
	return nil
}

// ListRecent returns the most recently exited trades for a pair, newest
// first.
func (s *BacktestStore) ListRecent(ctx context.Context, symbolA, symbolB string, limit int) ([]domain.JournaledTrade, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol_a, symbol_b, entry_time, exit_time,
			direction, entry_z, exit_z, pnl, created_at
		FROM backtest_trades
		WHERE symbol_a = $1 AND symbol_b = $2
		ORDER BY exit_time DESC
		LIMIT $3`,
		symbolA, symbolB, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	defer rows.Close()

	var out []domain.JournaledTrade
	for rows.Next() {
		var (
			jt  domain.JournaledTrade
			dir int16
		)
		if err := rows.Scan(
			&jt.ID, &jt.SymbolA, &jt.SymbolB,
			&jt.Trade.EntryTime, &jt.Trade.ExitTime,
			&dir, &jt.Trade.EntryZ, &jt.Trade.ExitZ, &jt.Trade.PnL,
			&jt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		jt.Trade.Direction = domain.Direction(dir)
		out = append(out, jt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades: %w", err)
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.TradeJournal = (*BacktestStore)(nil)
