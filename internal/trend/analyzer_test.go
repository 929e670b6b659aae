package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signal-lab/internal/domain"
)

// series builds n candles drifting one unit per bar in the given direction.
func series(n int, up bool, volume float64) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		c := domain.Candle{TimestampMs: int64(i) * 60_000, Volume: volume}
		if up {
			c.Low = 100 + float64(i)
			c.Open, c.Close = c.Low+0.5, c.Low+1.5
		} else {
			c.Low = 200 - float64(i)
			c.Open, c.Close = c.Low+1.5, c.Low+0.5
		}
		c.High = c.Low + 2
		out[i] = c
	}
	return out
}

func TestAnalyze_BullishTrend(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	ctx := a.Analyze(series(80, true, 1000), nil)

	assert.Equal(t, domain.TrendBullish, ctx.TrendBias)
	assert.True(t, ctx.IsTrending)
	assert.True(t, ctx.LiquidityOK)
	assert.False(t, ctx.VWMAFalling)
	assert.False(t, ctx.HasVolumeSurge)
	assert.Equal(t, domain.PatternNone, ctx.LastPattern)
	assert.Equal(t, domain.TrendNeutral, ctx.HTFBias)
	assert.Empty(t, ctx.Reason)
}

func TestAnalyze_BearishTrend(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	ctx := a.Analyze(series(80, false, 1000), nil)

	assert.Equal(t, domain.TrendBearish, ctx.TrendBias)
	assert.True(t, ctx.IsTrending)
	assert.True(t, ctx.VWMAFalling)
	assert.Greater(t, ctx.MinusDI, ctx.PlusDI)
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())

	ctx := a.Analyze(series(10, true, 1000), nil)

	assert.True(t, ctx.Neutral())
	assert.False(t, ctx.LiquidityOK)
	assert.Contains(t, ctx.Reason, "insufficient history")
}

func TestAnalyze_LiquidityFloor(t *testing.T) {
	candles := series(80, true, 1000)
	var total float64
	for _, c := range candles[len(candles)-50:] {
		total += c.TradedValue()
	}
	avg := total / 50

	cfg := DefaultConfig()
	cfg.MinAvgTradedValue = avg * 0.8
	cfg.BearishFloorMultiplier = 1.5
	a := NewAnalyzer(cfg)

	t.Run("above floor", func(t *testing.T) {
		ctx := a.Analyze(candles, nil)
		assert.True(t, ctx.LiquidityOK)
		assert.InDelta(t, avg, ctx.AvgTradedValue, 1e-6)
	})

	t.Run("bearish higher timeframe raises floor", func(t *testing.T) {
		ctx := a.Analyze(candles, series(40, false, 1000))
		assert.Equal(t, domain.TrendBearish, ctx.HTFBias)
		assert.False(t, ctx.LiquidityOK)
		assert.True(t, ctx.Neutral())
		assert.Contains(t, ctx.Reason, "below floor")
	})

	t.Run("bullish higher timeframe keeps base floor", func(t *testing.T) {
		ctx := a.Analyze(candles, series(40, true, 1000))
		assert.Equal(t, domain.TrendBullish, ctx.HTFBias)
		assert.True(t, ctx.LiquidityOK)
	})
}

func TestAnalyze_VolumeSurgeAndPattern(t *testing.T) {
	candles := series(80, true, 1000)
	last := &candles[len(candles)-1]
	prev := candles[len(candles)-2]
	last.Volume = 10_000
	// bullish engulfing over a bearish previous bar
	candles[len(candles)-2].Open, candles[len(candles)-2].Close = prev.Close, prev.Open
	last.Open = candles[len(candles)-2].Close - 0.1
	last.Low = last.Open - 0.5
	last.Close = candles[len(candles)-2].Open + 0.2
	last.High = last.Close + 0.5

	ctx := NewAnalyzer(DefaultConfig()).Analyze(candles, nil)

	assert.True(t, ctx.HasVolumeSurge)
	assert.Equal(t, domain.PatternBullishEngulfing, ctx.LastPattern)
}

func TestNewAnalyzer_NormalizesConfig(t *testing.T) {
	a := NewAnalyzer(Config{BearishFloorMultiplier: 0.2, MinAvgTradedValue: -5})

	cfg := a.Config()
	assert.Equal(t, 14, cfg.ADXPeriod)
	assert.Equal(t, 1.0, cfg.BearishFloorMultiplier)
	assert.Equal(t, 0.0, cfg.MinAvgTradedValue)
	assert.Equal(t, 50, a.MinBars())
}
