// Package verification checks that stored backtest runs reproduce exactly when
// the harness is re-run over the same candles and configuration.
package verification

import (
	"fmt"

	"signal-lab/internal/domain"
)

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string // field name, trades[i].X for trade log fields
	Expected any    // stored value
	Actual   any    // replayed value
}

func (d FieldDivergence) String() string {
	return fmt.Sprintf("%s: stored %v, replayed %v", d.Field, d.Expected, d.Actual)
}

// VerificationResult contains the result of verifying one run.
type VerificationResult struct {
	RunID       string
	Match       bool
	Divergences []FieldDivergence
}

// CompareBacktestResults compares two results field by field. Values are fixed
// point, so comparison is exact. Equity curves are compared only when both
// sides carry one.
func CompareBacktestResults(stored, replayed *domain.BacktestResult) []FieldDivergence {
	var out []FieldDivergence
	check := func(field string, a, b any) {
		if a != b {
			out = append(out, FieldDivergence{Field: field, Expected: a, Actual: b})
		}
	}

	check("RunID", stored.RunID, replayed.RunID)
	check("Symbol", stored.Symbol, replayed.Symbol)
	check("InitialCapital", stored.InitialCapital, replayed.InitialCapital)
	check("FinalCapital", stored.FinalCapital, replayed.FinalCapital)
	check("TotalPnLPct", stored.TotalPnLPct, replayed.TotalPnLPct)
	check("TotalTrades", stored.TotalTrades, replayed.TotalTrades)
	check("Wins", stored.Wins, replayed.Wins)
	check("Losses", stored.Losses, replayed.Losses)
	check("MaxConsecutiveLosses", stored.MaxConsecutiveLosses, replayed.MaxConsecutiveLosses)
	check("WinRate", stored.WinRate, replayed.WinRate)
	check("MaxDrawdownPct", stored.MaxDrawdownPct, replayed.MaxDrawdownPct)
	check("SharpeRatio", stored.SharpeRatio, replayed.SharpeRatio)
	check("ProfitFactor", stored.ProfitFactor, replayed.ProfitFactor)
	check("Expectancy", stored.Expectancy, replayed.Expectancy)
	check("PayoffRatio", stored.PayoffRatio, replayed.PayoffRatio)
	check("TimeInMarketPct", stored.TimeInMarketPct, replayed.TimeInMarketPct)
	check("AvgTradePnLPct", stored.AvgTradePnLPct, replayed.AvgTradePnLPct)
	check("AvgHoldingMs", stored.AvgHoldingMs, replayed.AvgHoldingMs)
	check("StartMs", stored.StartMs, replayed.StartMs)
	check("EndMs", stored.EndMs, replayed.EndMs)

	check("len(Trades)", len(stored.Trades), len(replayed.Trades))
	for i := 0; i < min(len(stored.Trades), len(replayed.Trades)); i++ {
		if stored.Trades[i] != replayed.Trades[i] {
			out = append(out, compareTrade(i, stored.Trades[i], replayed.Trades[i])...)
		}
	}

	if len(stored.EquityCurve) > 0 && len(replayed.EquityCurve) > 0 {
		check("len(EquityCurve)", len(stored.EquityCurve), len(replayed.EquityCurve))
		for i := 0; i < min(len(stored.EquityCurve), len(replayed.EquityCurve)); i++ {
			if stored.EquityCurve[i] != replayed.EquityCurve[i] {
				check(fmt.Sprintf("equity[%d]", i), stored.EquityCurve[i], replayed.EquityCurve[i])
				break
			}
		}
	}
	return out
}

func compareTrade(i int, a, b domain.TradeLog) []FieldDivergence {
	var out []FieldDivergence
	check := func(field string, x, y any) {
		if x != y {
			out = append(out, FieldDivergence{Field: fmt.Sprintf("trades[%d].%s", i, field), Expected: x, Actual: y})
		}
	}
	check("Seq", a.Seq, b.Seq)
	check("SignalID", a.SignalID, b.SignalID)
	check("Side", a.Side, b.Side)
	check("EntryMs", a.EntryMs, b.EntryMs)
	check("ExitMs", a.ExitMs, b.ExitMs)
	check("EntryPrice", a.EntryPrice, b.EntryPrice)
	check("ExitPrice", a.ExitPrice, b.ExitPrice)
	check("Quantity", a.Quantity, b.Quantity)
	check("Reserved", a.Reserved, b.Reserved)
	check("Fees", a.Fees, b.Fees)
	check("PnL", a.PnL, b.PnL)
	check("PnLPct", a.PnLPct, b.PnLPct)
	check("Outcome", a.Outcome, b.Outcome)
	check("ExitReason", a.ExitReason, b.ExitReason)
	check("RMultiple", a.RMultiple, b.RMultiple)
	check("Label", a.Label, b.Label)
	check("Confidence", a.Confidence, b.Confidence)
	return out
}
