package storage

import (
	"context"

	"signal-lab/internal/domain"
)

// SimulatedTradeStore provides access to simulated_trades storage.
// Implementations must tolerate concurrent, unordered inserts.
type SimulatedTradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.SimulatedTrade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.SimulatedTrade, error)

	// GetBySymbol retrieves all trades for a symbol, ordered by opened_at ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.SimulatedTrade, error)

	// GetByTimeRange retrieves trades opened within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SimulatedTrade, error)
}

// BacktestResultStore provides access to backtest_results storage.
type BacktestResultStore interface {
	// Insert adds a run with its trade log. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByRunID retrieves a run with its trade log. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.BacktestResult, error)

	// GetBySymbol retrieves run summaries for a symbol, ordered by run_id ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestResult, error)
}

// CooldownStore tracks the last directional decision per symbol.
type CooldownStore interface {
	// TryAcquire atomically records nowMs for symbol and returns true when no
	// decision was recorded within windowMs before nowMs. Returns false and
	// leaves state unchanged otherwise.
	TryAcquire(ctx context.Context, symbol string, nowMs, windowMs int64) (bool, error)

	// Last returns the last recorded timestamp for symbol.
	Last(ctx context.Context, symbol string) (int64, bool, error)
}
