package clickhouse

import (
	"context"
	"fmt"
	"time"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// BacktestResultStore implements storage.BacktestResultStore using ClickHouse.
// Run summaries go to backtest_results and the trade log to backtest_trades.
type BacktestResultStore struct {
	conn *Conn
}

// NewBacktestResultStore creates a new BacktestResultStore.
func NewBacktestResultStore(conn *Conn) *BacktestResultStore {
	return &BacktestResultStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)

const backtestResultColumns = `
	run_id, symbol,
	initial_capital, final_capital, total_pnl_pct,
	total_trades, wins, losses, max_consecutive_losses,
	win_rate, max_drawdown_pct, sharpe_ratio, profit_factor,
	expectancy, payoff_ratio, time_in_market_pct, avg_trade_pnl_pct,
	avg_holding_ms, start_ms, end_ms,
	equity_ts, equity_values`

const backtestTradeColumns = `
	run_id, seq, signal_id, side,
	entry_ms, exit_ms, entry_price, exit_price,
	quantity, reserved, fees, pnl, pnl_pct,
	outcome, exit_reason, r_multiple, label, confidence`

// Insert adds a run with its trade log. Returns ErrDuplicateKey if run_id exists.
// MergeTree does not enforce uniqueness, so the key is checked first.
func (s *BacktestResultStore) Insert(ctx context.Context, r *domain.BacktestResult) (err error) {
	defer func(start time.Time) { observe("insert_backtest_result", start, err) }(time.Now())

	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}
	exists, err := s.exists(ctx, r.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	// Trades first so a visible summary always has its log.
	if len(r.Trades) > 0 {
		batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO backtest_trades (`+backtestTradeColumns+`)`)
		if err != nil {
			return fmt.Errorf("prepare trade batch: %w", err)
		}
		for _, t := range r.Trades {
			err = batch.Append(
				r.RunID, uint32(t.Seq), t.SignalID, string(t.Side),
				t.EntryMs, t.ExitMs, int64(t.EntryPrice), int64(t.ExitPrice),
				int64(t.Quantity), int64(t.Reserved), int64(t.Fees), int64(t.PnL), int64(t.PnLPct),
				t.Outcome, t.ExitReason, int64(t.RMultiple), int8(t.Label), int64(t.Confidence),
			)
			if err != nil {
				return fmt.Errorf("append trade to batch: %w", err)
			}
		}
		if err := batch.Send(); err != nil {
			return fmt.Errorf("send trade batch: %w", err)
		}
	}

	equityTs := make([]int64, len(r.EquityCurve))
	equityValues := make([]int64, len(r.EquityCurve))
	for i, p := range r.EquityCurve {
		equityTs[i] = p.TimestampMs
		equityValues[i] = int64(p.Equity)
	}

	query := `
		INSERT INTO backtest_results (` + backtestResultColumns + `
		) VALUES (
			?, ?,
			?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?, ?,
			?, ?, ?,
			?, ?
		)
	`
	err = s.conn.Exec(ctx, query,
		r.RunID, r.Symbol,
		int64(r.InitialCapital), int64(r.FinalCapital), int64(r.TotalPnLPct),
		uint32(r.TotalTrades), uint32(r.Wins), uint32(r.Losses), uint32(r.MaxConsecutiveLosses),
		int64(r.WinRate), int64(r.MaxDrawdownPct), int64(r.SharpeRatio), int64(r.ProfitFactor),
		int64(r.Expectancy), int64(r.PayoffRatio), int64(r.TimeInMarketPct), int64(r.AvgTradePnLPct),
		r.AvgHoldingMs, r.StartMs, r.EndMs,
		equityTs, equityValues,
	)
	if err != nil {
		return fmt.Errorf("insert backtest result: %w", err)
	}
	return nil
}

// GetByRunID retrieves a run with its trade log. Returns ErrNotFound if not exists.
func (s *BacktestResultStore) GetByRunID(ctx context.Context, runID string) (_ *domain.BacktestResult, err error) {
	defer func(start time.Time) { observe("get_backtest_result", start, err) }(time.Now())

	query := `SELECT ` + backtestResultColumns + ` FROM backtest_results WHERE run_id = ? LIMIT 1`
	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query backtest result: %w", err)
	}
	results, err := scanBacktestResults(rows, true)
	rows.Close()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, storage.ErrNotFound
	}
	r := results[0]

	trades, err := s.trades(ctx, runID)
	if err != nil {
		return nil, err
	}
	r.Trades = trades
	return r, nil
}

// GetBySymbol retrieves run summaries for a symbol, ordered by run_id ASC.
// Trade logs and equity curves are not loaded.
func (s *BacktestResultStore) GetBySymbol(ctx context.Context, symbol string) (_ []*domain.BacktestResult, err error) {
	defer func(start time.Time) { observe("list_backtest_results", start, err) }(time.Now())

	query := `SELECT ` + backtestResultColumns + `
		FROM backtest_results
		WHERE symbol = ?
		ORDER BY run_id ASC
	`
	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query backtest results by symbol: %w", err)
	}
	defer rows.Close()

	return scanBacktestResults(rows, false)
}

func (s *BacktestResultStore) trades(ctx context.Context, runID string) ([]domain.TradeLog, error) {
	query := `SELECT ` + backtestTradeColumns + `
		FROM backtest_trades
		WHERE run_id = ?
		ORDER BY seq ASC
	`
	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query backtest trades: %w", err)
	}
	defer rows.Close()

	var trades []domain.TradeLog
	for rows.Next() {
		var (
			t                                         domain.TradeLog
			run, side                                 string
			seq                                       uint32
			label                                     int8
			entryPx, exitPx, qty, reserved, fees, pnl int64
			pnlPct, rMultiple, confidence             int64
		)
		err := rows.Scan(
			&run, &seq, &t.SignalID, &side,
			&t.EntryMs, &t.ExitMs, &entryPx, &exitPx,
			&qty, &reserved, &fees, &pnl, &pnlPct,
			&t.Outcome, &t.ExitReason, &rMultiple, &label, &confidence,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest trade row: %w", err)
		}
		t.Seq = int(seq)
		t.Side = domain.Side(side)
		t.EntryPrice = domain.Amount(entryPx)
		t.ExitPrice = domain.Amount(exitPx)
		t.Quantity = domain.Amount(qty)
		t.Reserved = domain.Amount(reserved)
		t.Fees = domain.Amount(fees)
		t.PnL = domain.Amount(pnl)
		t.PnLPct = domain.Ratio(pnlPct)
		t.RMultiple = domain.Ratio(rMultiple)
		t.Label = int(label)
		t.Confidence = domain.Ratio(confidence)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest trade rows: %w", err)
	}
	return trades, nil
}

// exists checks if a run with the given ID exists.
func (s *BacktestResultStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM backtest_results WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanBacktestResults scans summary rows. withEquity keeps the equity curve.
func scanBacktestResults(rows chRows, withEquity bool) ([]*domain.BacktestResult, error) {
	var results []*domain.BacktestResult

	for rows.Next() {
		var (
			r                                       domain.BacktestResult
			initial, final, totalPct                int64
			trades, wins, losses, streak            uint32
			winRate, drawdown, sharpe, pf           int64
			expectancy, payoff, inMarket, avgPnLPct int64
			equityTs, equityValues                  []int64
		)
		err := rows.Scan(
			&r.RunID, &r.Symbol,
			&initial, &final, &totalPct,
			&trades, &wins, &losses, &streak,
			&winRate, &drawdown, &sharpe, &pf,
			&expectancy, &payoff, &inMarket, &avgPnLPct,
			&r.AvgHoldingMs, &r.StartMs, &r.EndMs,
			&equityTs, &equityValues,
		)
		if err != nil {
			return nil, fmt.Errorf("scan backtest result row: %w", err)
		}
		r.InitialCapital = domain.Amount(initial)
		r.FinalCapital = domain.Amount(final)
		r.TotalPnLPct = domain.Ratio(totalPct)
		r.TotalTrades = int(trades)
		r.Wins = int(wins)
		r.Losses = int(losses)
		r.MaxConsecutiveLosses = int(streak)
		r.WinRate = domain.Ratio(winRate)
		r.MaxDrawdownPct = domain.Ratio(drawdown)
		r.SharpeRatio = domain.Ratio(sharpe)
		r.ProfitFactor = domain.Ratio(pf)
		r.Expectancy = domain.Amount(expectancy)
		r.PayoffRatio = domain.Ratio(payoff)
		r.TimeInMarketPct = domain.Ratio(inMarket)
		r.AvgTradePnLPct = domain.Ratio(avgPnLPct)
		if withEquity && len(equityTs) == len(equityValues) {
			r.EquityCurve = make([]domain.EquityPoint, len(equityTs))
			for i := range equityTs {
				r.EquityCurve[i] = domain.EquityPoint{TimestampMs: equityTs[i], Equity: domain.Amount(equityValues[i])}
			}
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest result rows: %w", err)
	}

	return results, nil
}
