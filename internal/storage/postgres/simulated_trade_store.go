package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// SimulatedTradeStore implements storage.SimulatedTradeStore using PostgreSQL.
type SimulatedTradeStore struct {
	pool *Pool
}

// NewSimulatedTradeStore creates a new SimulatedTradeStore.
func NewSimulatedTradeStore(pool *Pool) *SimulatedTradeStore {
	return &SimulatedTradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SimulatedTradeStore = (*SimulatedTradeStore)(nil)

const simulatedTradeColumns = `
	trade_id, signal_id, symbol, side,
	entry_price, stop_loss, trailing_dist, tp_levels,
	quantity, fills, opened_at, closed_at,
	outcome, pnl, r_multiple, label,
	max_favorable_exc, max_adverse_exc,
	duration_ms, time_to_mfe_ms, time_to_mae_ms`

// tpLevelRow is the JSONB shape of one take-profit level.
type tpLevelRow struct {
	Price  int64   `json:"price"`
	Weight float64 `json:"weight"`
}

// fillRow is the JSONB shape of one exit fill.
type fillRow struct {
	TimestampMs int64   `json:"ts"`
	Price       int64   `json:"price"`
	Fraction    float64 `json:"fraction"`
	Reason      string  `json:"reason"`
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *SimulatedTradeStore) Insert(ctx context.Context, t *domain.SimulatedTrade) (err error) {
	defer func(start time.Time) { observe("insert_simulated_trade", start, err) }(time.Now())

	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	levels := make([]tpLevelRow, len(t.TPLevels))
	for i, l := range t.TPLevels {
		levels[i] = tpLevelRow{Price: int64(l.Price), Weight: l.Weight}
	}
	levelsJSON, err := json.Marshal(levels)
	if err != nil {
		return fmt.Errorf("marshal tp levels: %w", err)
	}

	fills := make([]fillRow, len(t.Fills))
	for i, f := range t.Fills {
		fills[i] = fillRow{TimestampMs: f.TimestampMs, Price: int64(f.Price), Fraction: f.Fraction, Reason: f.Reason}
	}
	fillsJSON, err := json.Marshal(fills)
	if err != nil {
		return fmt.Errorf("marshal fills: %w", err)
	}

	query := `
		INSERT INTO simulated_trades (` + simulatedTradeColumns + `
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18,
			$19, $20, $21
		)
	`

	_, err = s.pool.Exec(ctx, query,
		t.TradeID, t.SignalID, t.Symbol, string(t.Side),
		int64(t.EntryPrice), amountPtr(t.StopLoss), amountPtr(t.TrailingDist), levelsJSON,
		int64(t.Quantity), fillsJSON, t.OpenedAt, t.ClosedAt,
		t.Outcome, int64(t.PnL), int64(t.RMultiple), t.Label,
		int64(t.MaxFavorableExcursion), int64(t.MaxAdverseExcursion),
		t.DurationMs, t.TimeToMFEMs, t.TimeToMAEMs,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert simulated trade: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *SimulatedTradeStore) GetByID(ctx context.Context, tradeID string) (_ *domain.SimulatedTrade, err error) {
	defer func(start time.Time) { observe("get_simulated_trade", start, err) }(time.Now())

	query := `SELECT ` + simulatedTradeColumns + ` FROM simulated_trades WHERE trade_id = $1`

	t, err := scanSimulatedTrade(s.pool.QueryRow(ctx, query, tradeID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get simulated trade by id: %w", err)
	}
	return t, nil
}

// GetBySymbol retrieves all trades for a symbol, ordered by opened_at ASC.
func (s *SimulatedTradeStore) GetBySymbol(ctx context.Context, symbol string) (_ []*domain.SimulatedTrade, err error) {
	defer func(start time.Time) { observe("list_simulated_trades", start, err) }(time.Now())

	query := `SELECT ` + simulatedTradeColumns + `
		FROM simulated_trades
		WHERE symbol = $1
		ORDER BY opened_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("get simulated trades by symbol: %w", err)
	}
	defer rows.Close()

	return scanSimulatedTrades(rows)
}

// GetByTimeRange retrieves trades opened within [start, end] (inclusive).
func (s *SimulatedTradeStore) GetByTimeRange(ctx context.Context, start, end int64) (_ []*domain.SimulatedTrade, err error) {
	defer func(t time.Time) { observe("list_simulated_trades", t, err) }(time.Now())

	query := `SELECT ` + simulatedTradeColumns + `
		FROM simulated_trades
		WHERE opened_at >= $1 AND opened_at <= $2
		ORDER BY opened_at ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get simulated trades by time range: %w", err)
	}
	defer rows.Close()

	return scanSimulatedTrades(rows)
}

// scanSimulatedTrade scans a single row into a SimulatedTrade.
func scanSimulatedTrade(row pgx.Row) (*domain.SimulatedTrade, error) {
	var (
		t                     domain.SimulatedTrade
		side                  string
		entry, qty, pnl       int64
		rMultiple, mfe, mae   int64
		stop, trail           *int64
		levelsJSON, fillsJSON []byte
	)

	err := row.Scan(
		&t.TradeID, &t.SignalID, &t.Symbol, &side,
		&entry, &stop, &trail, &levelsJSON,
		&qty, &fillsJSON, &t.OpenedAt, &t.ClosedAt,
		&t.Outcome, &pnl, &rMultiple, &t.Label,
		&mfe, &mae,
		&t.DurationMs, &t.TimeToMFEMs, &t.TimeToMAEMs,
	)
	if err != nil {
		return nil, err
	}

	t.Side = domain.Side(side)
	t.EntryPrice = domain.Amount(entry)
	t.Quantity = domain.Amount(qty)
	t.PnL = domain.Amount(pnl)
	t.RMultiple = domain.Ratio(rMultiple)
	t.MaxFavorableExcursion = domain.Ratio(mfe)
	t.MaxAdverseExcursion = domain.Ratio(mae)
	if stop != nil {
		v := domain.Amount(*stop)
		t.StopLoss = &v
	}
	if trail != nil {
		v := domain.Amount(*trail)
		t.TrailingDist = &v
	}

	var levels []tpLevelRow
	if err := json.Unmarshal(levelsJSON, &levels); err != nil {
		return nil, fmt.Errorf("unmarshal tp levels: %w", err)
	}
	for _, l := range levels {
		t.TPLevels = append(t.TPLevels, domain.PartialTPLevel{Price: domain.Amount(l.Price), Weight: l.Weight})
	}

	var fills []fillRow
	if err := json.Unmarshal(fillsJSON, &fills); err != nil {
		return nil, fmt.Errorf("unmarshal fills: %w", err)
	}
	for _, f := range fills {
		t.Fills = append(t.Fills, domain.Fill{
			TimestampMs: f.TimestampMs,
			Price:       domain.Amount(f.Price),
			Fraction:    f.Fraction,
			Reason:      f.Reason,
		})
	}

	return &t, nil
}

// scanSimulatedTrades scans multiple rows into a slice of SimulatedTrade.
func scanSimulatedTrades(rows pgx.Rows) ([]*domain.SimulatedTrade, error) {
	var trades []*domain.SimulatedTrade

	for rows.Next() {
		t, err := scanSimulatedTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("scan simulated trade row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate simulated trade rows: %w", err)
	}

	return trades, nil
}

func amountPtr(a *domain.Amount) *int64 {
	if a == nil {
		return nil
	}
	v := int64(*a)
	return &v
}
