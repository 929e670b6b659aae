package reporting

import (
	"fmt"
	"strings"
	"time"

	"signal-lab/internal/domain"
)

// RenderMarkdown renders one backtest result as Markdown string.
func RenderMarkdown(r *domain.BacktestResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest %s\n\n", r.Symbol))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Range: %s to %s\n\n", formatMs(r.StartMs), formatMs(r.EndMs)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %s |\n", r.InitialCapital.Decimal().StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Final Capital | %s |\n", r.FinalCapital.Decimal().StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total PnL %% | %.2f |\n", r.TotalPnLPct.Float()))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", r.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", r.Wins, r.Losses))
	sb.WriteString(fmt.Sprintf("| Win Rate %% | %.2f |\n", r.WinRate.Float()))
	sb.WriteString(fmt.Sprintf("| Max Drawdown %% | %.2f |\n", r.MaxDrawdownPct.Float()))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", r.SharpeRatio.Float()))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.4f |\n", r.ProfitFactor.Float()))
	sb.WriteString(fmt.Sprintf("| Payoff Ratio | %.4f |\n", r.PayoffRatio.Float()))
	sb.WriteString(fmt.Sprintf("| Expectancy | %s |\n", r.Expectancy.Decimal().StringFixed(4)))
	sb.WriteString(fmt.Sprintf("| Avg Trade PnL %% | %.4f |\n", r.AvgTradePnLPct.Float()))
	sb.WriteString(fmt.Sprintf("| Time in Market %% | %.2f |\n", r.TimeInMarketPct.Float()))
	sb.WriteString(fmt.Sprintf("| Avg Holding | %s |\n", time.Duration(r.AvgHoldingMs)*time.Millisecond))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", r.MaxConsecutiveLosses))
	sb.WriteString("\n")

	// Trades
	sb.WriteString("## Trades\n\n")
	if len(r.Trades) == 0 {
		sb.WriteString("No trades.\n\n")
		return sb.String()
	}
	sb.WriteString("| # | Side | Entry | Exit | Entry Price | Exit Price | PnL | PnL % | R | Outcome | Exit Reason |\n")
	sb.WriteString("|---|------|-------|------|-------------|------------|-----|-------|---|---------|-------------|\n")
	for _, t := range r.Trades {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s | %.2f | %.2f | %s | %s |\n",
			t.Seq, t.Side, formatMs(t.EntryMs), formatMs(t.ExitMs),
			t.EntryPrice.Decimal().StringFixed(4), t.ExitPrice.Decimal().StringFixed(4),
			t.PnL.Decimal().StringFixed(2), t.PnLPct.Float(), t.RMultiple.Float(),
			t.Outcome, t.ExitReason))
	}
	sb.WriteString("\n")

	return sb.String()
}

// RenderReport renders a multi-run report as Markdown string.
func RenderReport(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Symbol | Run | Trades | WinRate | PnL % | MaxDD % | Sharpe | PF | MaxLoss |\n")
		sb.WriteString("|--------|-----|--------|---------|-------|---------|--------|----|---------|\n")
		for _, run := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %.2f | %.2f | %.2f | %.4f | %.4f | %d |\n",
				run.Symbol, shortID(run.RunID), run.TotalTrades, run.WinRate, run.TotalPnLPct,
				run.MaxDrawdownPct, run.SharpeRatio, run.ProfitFactor, run.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Scenario Sensitivity
	sb.WriteString("## Scenario Sensitivity\n\n")
	if len(r.ScenarioSensitivity) > 0 {
		sb.WriteString("| Symbol | Realistic | Pessimistic | Degraded | Degradation% |\n")
		sb.WriteString("|--------|-----------|-------------|----------|-------------|\n")
		for _, s := range r.ScenarioSensitivity {
			sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.4f | %.2f |\n",
				s.Symbol, s.RealisticPct, s.PessimisticPct, s.DegradedPct, s.DegradationPct))
		}
	} else {
		sb.WriteString("No scenario sensitivity data available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
