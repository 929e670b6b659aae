package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"signal-lab/internal/domain"
)

func TestComputeMaxDrawdownPct(t *testing.T) {
	assert.InDelta(t, 25, computeMaxDrawdownPct([]float64{100, 120, 90, 130, 117}), 1e-9)
	assert.InDelta(t, 0, computeMaxDrawdownPct([]float64{100, 101, 102}), 1e-9)
	assert.InDelta(t, 0, computeMaxDrawdownPct(nil), 1e-9)
}

func TestCappedRatio(t *testing.T) {
	assert.InDelta(t, 2, cappedRatio(100, 50), 1e-9)
	assert.InDelta(t, MaxRatio, cappedRatio(100, 0), 1e-9)
	assert.InDelta(t, 0, cappedRatio(0, 0), 1e-9)
	assert.InDelta(t, MaxRatio, cappedRatio(1e6, 1), 1e-9)
}

func TestComputeSharpe(t *testing.T) {
	assert.Equal(t, 0.0, computeSharpe([]float64{0.01, 0.01, 0.01}, 252, 0), "zero variance")
	assert.Equal(t, 0.0, computeSharpe([]float64{0.01}, 252, 0), "single sample")

	returns := []float64{0.01, -0.005, 0.02, 0}
	mean := computeMean(returns)
	sd := computeStddev(returns, mean)
	want := (mean - 0.05/252) / sd * math.Sqrt(252)
	assert.InDelta(t, want, computeSharpe(returns, 252, 0.05), 1e-12)
}

func TestBarReturns(t *testing.T) {
	got := barReturns([]float64{110, 99}, 100)
	assert.InDeltaSlice(t, []float64{0.1, -0.1}, got, 1e-12)
}

func TestComputeMaxConsecutiveLosses(t *testing.T) {
	assert.Equal(t, 3, computeMaxConsecutiveLosses([]float64{1, -1, 0, -2, 5, -1}))
	assert.Equal(t, 0, computeMaxConsecutiveLosses(nil))
}

func TestComputeSummary(t *testing.T) {
	trades := []domain.TradeLog{
		{PnL: domain.AmountFromFloat(100), EntryMs: 0, ExitMs: 60_000},
		{PnL: domain.AmountFromFloat(-50), EntryMs: 120_000, ExitMs: 300_000},
		{PnL: domain.AmountFromFloat(200), EntryMs: 360_000, ExitMs: 420_000},
		{PnL: domain.AmountFromFloat(-50), EntryMs: 480_000, ExitMs: 540_000},
	}
	equity := []float64{10000, 10100, 10050, 10250, 10200}
	s := computeSummary(trades, equity, 10000, 2, DefaultConfig())

	assert.Equal(t, 2, s.wins)
	assert.Equal(t, 2, s.losses)
	assert.InDelta(t, 50, s.winRate, 1e-9)
	assert.InDelta(t, 3, s.profitFactor, 1e-9)  // 300 / 100
	assert.InDelta(t, 50, s.expectancy, 1e-9)   // 0.5*150 - 0.5*50
	assert.InDelta(t, 3, s.payoffRatio, 1e-9)   // 150 / 50
	assert.InDelta(t, 0.5, s.avgTradePnLPct, 1e-9)
	assert.Equal(t, int64(90_000), s.avgHoldingMs)
	assert.InDelta(t, 40, s.timeInMarketPct, 1e-9)
	assert.Equal(t, 1, s.maxConsecutiveLosses)
	assert.Greater(t, s.sharpe, 0.0)
}

func TestComputeSummary_NoTrades(t *testing.T) {
	s := computeSummary(nil, []float64{100, 100}, 100, 0, DefaultConfig())
	assert.Zero(t, s.winRate)
	assert.Zero(t, s.profitFactor)
	assert.Zero(t, s.payoffRatio)
	assert.Zero(t, s.expectancy)
	assert.Zero(t, s.sharpe)
}
