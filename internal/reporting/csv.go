package reporting

import (
	"fmt"
	"strings"

	"signal-lab/internal/domain"
)

// RenderTradesCSV renders the trade log of r as CSV string.
func RenderTradesCSV(r *domain.BacktestResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("seq,signal_id,side,entry_ms,exit_ms,entry_price,exit_price,quantity,")
	sb.WriteString("reserved,fees,pnl,pnl_pct,r_multiple,label,outcome,exit_reason,confidence\n")

	// Rows
	for _, t := range r.Trades {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%d,%d,%s,%s,%s,%s,%s,%s,%s,%s,%d,%s,%s,%s\n",
			t.Seq,
			t.SignalID,
			t.Side,
			t.EntryMs,
			t.ExitMs,
			t.EntryPrice,
			t.ExitPrice,
			t.Quantity,
			t.Reserved,
			t.Fees,
			t.PnL,
			t.PnLPct,
			t.RMultiple,
			t.Label,
			t.Outcome,
			t.ExitReason,
			t.Confidence,
		))
	}

	return sb.String()
}

// RenderRunsCSV renders run rows as CSV string.
func RenderRunsCSV(rows []RunRow) string {
	var sb strings.Builder

	sb.WriteString("run_id,symbol,start_ms,end_ms,total_trades,win_rate,total_pnl_pct,")
	sb.WriteString("max_drawdown_pct,sharpe_ratio,profit_factor,expectancy,max_consecutive_losses\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%d,%d,%d,%.4f,%.4f,%.4f,%.4f,%.4f,%.8f,%d\n",
			r.RunID,
			r.Symbol,
			r.StartMs,
			r.EndMs,
			r.TotalTrades,
			r.WinRate,
			r.TotalPnLPct,
			r.MaxDrawdownPct,
			r.SharpeRatio,
			r.ProfitFactor,
			r.Expectancy,
			r.MaxConsecutiveLosses,
		))
	}

	return sb.String()
}
