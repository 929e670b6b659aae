package backtest

import (
	"math"

	"signal-lab/internal/domain"
)

// MaxRatio caps profit factor and payoff ratio when there are no losses.
const MaxRatio = 999.0

// summary holds run statistics in float form before fixed-point conversion.
type summary struct {
	wins, losses         int
	maxConsecutiveLosses int
	winRate              float64
	avgTradePnLPct       float64
	avgHoldingMs         int64
	maxDrawdownPct       float64
	sharpe               float64
	profitFactor         float64
	expectancy           float64
	payoffRatio          float64
	timeInMarketPct      float64
}

// computeSummary derives statistics from closed trades and the equity curve.
// Trades and equity must be in chronological order.
func computeSummary(trades []domain.TradeLog, equity []float64, initial float64, barsInMarket int, cfg Config) summary {
	var s summary
	pnls := make([]float64, len(trades))
	var grossProfit, grossLoss float64
	var holding int64
	for i, t := range trades {
		p := t.PnL.Float()
		pnls[i] = p
		if p > 0 {
			s.wins++
			grossProfit += p
		} else {
			s.losses++
			grossLoss += -p
		}
		holding += t.ExitMs - t.EntryMs
	}

	n := len(trades)
	if n > 0 {
		s.winRate = float64(s.wins) / float64(n) * 100
		s.avgTradePnLPct = computeMean(pnls) / initial * 100
		s.avgHoldingMs = holding / int64(n)
	}
	s.maxConsecutiveLosses = computeMaxConsecutiveLosses(pnls)
	s.profitFactor = cappedRatio(grossProfit, grossLoss)

	var avgWin, avgLoss float64
	if s.wins > 0 {
		avgWin = grossProfit / float64(s.wins)
	}
	if s.losses > 0 {
		avgLoss = grossLoss / float64(s.losses)
	}
	if n > 0 {
		winP := float64(s.wins) / float64(n)
		s.expectancy = winP*avgWin - (1-winP)*avgLoss
	}
	s.payoffRatio = cappedRatio(avgWin, avgLoss)

	s.maxDrawdownPct = computeMaxDrawdownPct(equity)
	s.sharpe = computeSharpe(barReturns(equity, initial), cfg.BarsPerYear, cfg.RiskFreeRate)
	if len(equity) > 0 {
		s.timeInMarketPct = float64(barsInMarket) / float64(len(equity)) * 100
	}
	return s
}

// cappedRatio returns num/den, MaxRatio when only den is zero, 0 when both are.
func cappedRatio(num, den float64) float64 {
	if den <= 0 {
		if num > 0 {
			return MaxRatio
		}
		return 0
	}
	return math.Min(num/den, MaxRatio)
}

// barReturns returns simple per-bar returns, the first measured from initial.
func barReturns(equity []float64, initial float64) []float64 {
	out := make([]float64, 0, len(equity))
	prev := initial
	for _, e := range equity {
		if prev > 0 {
			out = append(out, e/prev-1)
		} else {
			out = append(out, 0)
		}
		prev = e
	}
	return out
}

// computeSharpe annualizes mean excess per-bar return over its sample stddev.
func computeSharpe(returns []float64, barsPerYear, riskFreeRate float64) float64 {
	if len(returns) < 2 || barsPerYear <= 0 {
		return 0
	}
	mean := computeMean(returns)
	stddev := computeStddev(returns, mean)
	if stddev == 0 {
		return 0
	}
	excess := mean - riskFreeRate/barsPerYear
	return excess / stddev * math.Sqrt(barsPerYear)
}

// computeMean calculates arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeMaxDrawdownPct calculates the worst peak-to-trough decline of the
// equity curve as a percentage of the peak.
func computeMaxDrawdownPct(equity []float64) float64 {
	peak := 0.0
	maxDrawdown := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - e) / peak * 100; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of pnl <= 0.
func computeMaxConsecutiveLosses(pnls []float64) int {
	maxStreak := 0
	currentStreak := 0
	for _, p := range pnls {
		if p <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}
