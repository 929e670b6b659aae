package simulation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-lab/internal/domain"
	"signal-lab/internal/idhash"
)

func TestSimulate_LongTakeProfit(t *testing.T) {
	d := decision(domain.SideBuy, 100, 96, 0, levelSpec{108, 1})
	trade, err := zeroCostSimulator().Simulate(d, []domain.Candle{bar(1, 100, 110, 95, 105)})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeTP, trade.Outcome)
	assert.InDelta(t, 80, trade.PnL.Float(), 1e-6)
	assert.InDelta(t, 2, trade.RMultiple.Float(), 1e-4)
	assert.Equal(t, 1, trade.Label)
	assert.InDelta(t, 8, trade.MaxFavorableExcursion.Float(), 1e-4)
	assert.InDelta(t, 10, trade.Quantity.Float(), 1e-6)
	require.Len(t, trade.Fills, 1)
	assert.Equal(t, domain.ExitReasonTakeProfit, trade.Fills[0].Reason)
	assert.InDelta(t, 108, trade.Fills[0].Price.Float(), 1e-6)
	assert.Equal(t, minuteMs, trade.ClosedAt)
	assert.Equal(t, minuteMs, trade.DurationMs)
	assert.Equal(t, idhash.ComputeTradeID("sig-1", "zero", 0), trade.TradeID)
}

func TestSimulate_ShortStopLoss(t *testing.T) {
	// Bearish bar: low is visited before the high, so MFE is recorded before the stop.
	d := decision(domain.SideSell, 100, 101, 0, levelSpec{80, 1})
	trade, err := zeroCostSimulator().Simulate(d, []domain.Candle{bar(1, 100, 102, 85, 90)})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSL, trade.Outcome)
	assert.InDelta(t, -10, trade.PnL.Float(), 1e-6)
	assert.InDelta(t, -1, trade.RMultiple.Float(), 1e-4)
	assert.Equal(t, -1, trade.Label)
	assert.InDelta(t, 15, trade.MaxFavorableExcursion.Float(), 1e-4)
	assert.InDelta(t, 1, trade.MaxAdverseExcursion.Float(), 1e-4)
	require.Len(t, trade.Fills, 1)
	assert.Equal(t, domain.ExitReasonInitialStop, trade.Fills[0].Reason)
	assert.InDelta(t, 101, trade.Fills[0].Price.Float(), 1e-6)
}

func TestSimulate_GapThroughStopFillsAtOpen(t *testing.T) {
	d := decision(domain.SideBuy, 100, 96, 0, levelSpec{108, 1})
	trade, err := zeroCostSimulator().Simulate(d, []domain.Candle{bar(1, 94, 95, 93, 94.5)})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSL, trade.Outcome)
	require.Len(t, trade.Fills, 1)
	assert.InDelta(t, 94, trade.Fills[0].Price.Float(), 1e-6)
	assert.InDelta(t, -1.5, trade.RMultiple.Float(), 1e-4)
	assert.Equal(t, -2, trade.Label)
}

func TestSimulate_PartialTakeProfitThenStop(t *testing.T) {
	d := decision(domain.SideBuy, 100, 96, 0, levelSpec{104, 0.5}, levelSpec{108, 0.5})
	forward := []domain.Candle{
		bar(1, 100, 105, 99, 104),
		bar(2, 104, 104.5, 95, 96),
	}
	trade, err := zeroCostSimulator().Simulate(d, forward)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomePartialTP, trade.Outcome)
	require.Len(t, trade.Fills, 2)
	assert.Equal(t, domain.ExitReasonTakeProfit, trade.Fills[0].Reason)
	assert.InDelta(t, 0.5, trade.Fills[0].Fraction, 1e-9)
	assert.Equal(t, domain.ExitReasonInitialStop, trade.Fills[1].Reason)
	assert.InDelta(t, 0.5, trade.Fills[1].Fraction, 1e-9)
	assert.InDelta(t, 0, trade.PnL.Float(), 1e-6)
	assert.Equal(t, 0, trade.Label)
	assert.Equal(t, 2*minuteMs, trade.ClosedAt)
}

func TestSimulate_TrailingStop(t *testing.T) {
	d := decision(domain.SideBuy, 100, 90, 5, levelSpec{150, 1})
	trade, err := zeroCostSimulator().Simulate(d, []domain.Candle{bar(1, 100, 110, 100, 108)})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeTrailingSL, trade.Outcome)
	require.Len(t, trade.Fills, 1)
	assert.Equal(t, domain.ExitReasonTrailingStop, trade.Fills[0].Reason)
	assert.InDelta(t, 105, trade.Fills[0].Price.Float(), 1e-6)
	assert.InDelta(t, 0.5, trade.RMultiple.Float(), 1e-4)
	assert.Equal(t, 0, trade.Label)
	require.NotNil(t, trade.TrailingDist)
	assert.InDelta(t, 5, trade.TrailingDist.Float(), 1e-9)
}

func TestSimulate_TrailingDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Scenario = zeroCost
	cfg.DisableTrailing = true
	d := decision(domain.SideBuy, 100, 90, 5, levelSpec{150, 1})

	trade, err := NewSimulator(cfg).Simulate(d, []domain.Candle{bar(1, 100, 110, 100, 108)})
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeTimeout, trade.Outcome)
	assert.Nil(t, trade.TrailingDist)
	require.Len(t, trade.Fills, 1)
	assert.Equal(t, domain.ExitReasonEndOfData, trade.Fills[0].Reason)
	assert.InDelta(t, 108, trade.Fills[0].Price.Float(), 1e-6)
}

func TestSimulate_Timeouts(t *testing.T) {
	forward := []domain.Candle{
		bar(1, 100, 101, 99, 100.5),
		bar(2, 100.5, 101, 99, 100.5),
		bar(3, 100.5, 101, 99, 100.5),
	}
	d := decision(domain.SideBuy, 100, 90, 0, levelSpec{150, 1})

	t.Run("max bars", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Scenario = zeroCost
		cfg.MaxBars = 2
		trade, err := NewSimulator(cfg).Simulate(d, forward)
		require.NoError(t, err)

		assert.Equal(t, domain.OutcomeTimeout, trade.Outcome)
		require.Len(t, trade.Fills, 1)
		assert.Equal(t, domain.ExitReasonMaxDuration, trade.Fills[0].Reason)
		assert.Equal(t, 2*minuteMs, trade.ClosedAt)
		assert.InDelta(t, 5, trade.PnL.Float(), 1e-6)
		assert.Equal(t, 0, trade.Label)
	})

	t.Run("max hold", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Scenario = zeroCost
		cfg.MaxHold = time.Minute
		trade, err := NewSimulator(cfg).Simulate(d, forward)
		require.NoError(t, err)

		assert.Equal(t, domain.ExitReasonMaxDuration, trade.Fills[0].Reason)
		assert.Equal(t, minuteMs, trade.ClosedAt)
	})

	t.Run("end of data", func(t *testing.T) {
		trade, err := zeroCostSimulator().Simulate(d, forward)
		require.NoError(t, err)

		assert.Equal(t, domain.OutcomeTimeout, trade.Outcome)
		assert.Equal(t, domain.ExitReasonEndOfData, trade.Fills[0].Reason)
		assert.Equal(t, 3*minuteMs, trade.ClosedAt)
	})

	t.Run("no forward bars", func(t *testing.T) {
		trade, err := zeroCostSimulator().Simulate(d, nil)
		require.NoError(t, err)

		assert.Equal(t, domain.OutcomeTimeout, trade.Outcome)
		assert.Equal(t, int64(0), trade.DurationMs)
		assert.InDelta(t, 0, trade.PnL.Float(), 1e-9)
		assert.InDelta(t, 100, trade.Fills[0].Price.Float(), 1e-6)
	})
}

func TestSimulate_SkipsBarsAtOrBeforeDecision(t *testing.T) {
	d := decision(domain.SideBuy, 100, 96, 0, levelSpec{108, 1})
	d.TimestampMs = minuteMs
	forward := []domain.Candle{
		bar(0, 100, 120, 80, 100), // would hit both levels
		bar(1, 100, 120, 80, 100),
		bar(2, 100, 110, 99, 105),
	}
	trade, err := zeroCostSimulator().Simulate(d, forward)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeTP, trade.Outcome)
	assert.Equal(t, 2*minuteMs, trade.ClosedAt)
}

func TestSimulate_ExecutionCosts(t *testing.T) {
	d := decision(domain.SideBuy, 100, 96, 0, levelSpec{108, 1})
	forward := []domain.Candle{bar(1, 100, 110, 95, 105)}

	free, err := zeroCostSimulator().Simulate(d, forward)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Scenario = domain.ScenarioConfigRealistic
	costly, err := NewSimulator(cfg).Simulate(d, forward)
	require.NoError(t, err)

	assert.Greater(t, costly.EntryPrice.Float(), 100.0)
	assert.Less(t, costly.Fills[0].Price.Float(), 108.0)
	assert.Less(t, costly.PnL.Float(), free.PnL.Float())
	assert.NotEqual(t, free.TradeID, costly.TradeID)
}

func TestSimulate_Deterministic(t *testing.T) {
	d := decision(domain.SideBuy, 100, 96, 2, levelSpec{104, 0.5}, levelSpec{108, 0.5})
	forward := []domain.Candle{
		bar(1, 100, 103, 99, 102),
		bar(2, 102, 105, 101, 104.5),
		bar(3, 104.5, 104.8, 100, 101),
	}
	sim := NewSimulator(DefaultConfig())
	first, err := sim.Simulate(d, forward)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := sim.Simulate(d, forward)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSimulate_Rejects(t *testing.T) {
	sim := zeroCostSimulator()

	_, err := sim.Simulate(domain.NewHold("BTCUSDT", 0, domain.AmountFromFloat(100)), nil)
	assert.ErrorIs(t, err, ErrHoldDecision)

	over := decision(domain.SideBuy, 100, 96, 0, levelSpec{104, 0.7}, levelSpec{108, 0.7})
	_, err = sim.Simulate(over, nil)
	assert.True(t, errors.Is(err, domain.ErrTPOverallocated))

	bad := decision(domain.SideBuy, 100, 96, 0)
	bad.Directional.Side = "up"
	_, err = sim.Simulate(bad, nil)
	assert.ErrorIs(t, err, ErrInvalidDecision)

	forward := []domain.Candle{bar(1, 100, 121, 89, 100)}
	misplaced := []domain.TradeDecision{
		decision(domain.SideBuy, 100, 96, 0, levelSpec{90, 1}),
		decision(domain.SideBuy, 100, 120, 0, levelSpec{108, 1}),
		decision(domain.SideBuy, 100, 100, 0, levelSpec{108, 1}),
		decision(domain.SideBuy, 100, 96, 0, levelSpec{104, 0.5}, levelSpec{100, 0.5}),
		decision(domain.SideSell, 100, 95, 0, levelSpec{90, 1}),
		decision(domain.SideSell, 100, 104, 0, levelSpec{110, 1}),
	}
	for i, d := range misplaced {
		_, err := sim.Simulate(d, forward)
		assert.ErrorIs(t, err, ErrInvalidDecision, "case %d", i)
	}

	// No stop is allowed.
	_, err = sim.Simulate(decision(domain.SideBuy, 100, 0, 0, levelSpec{108, 1}), forward)
	assert.NoError(t, err)
}
