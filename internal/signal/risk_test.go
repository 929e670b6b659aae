package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-lab/internal/domain"
)

func TestBuildDirectional_Buy(t *testing.T) {
	cfg := DefaultConfig()

	d, reasons := buildDirectional(domain.SideBuy, 100, 2, 50, cfg)

	assert.Empty(t, reasons)
	assert.Equal(t, domain.AmountFromFloat(100), d.EntryPrice)
	assert.Equal(t, domain.AmountFromFloat(97), d.StopLoss)
	require.Len(t, d.TakeProfit, 1)
	assert.Equal(t, domain.AmountFromFloat(106), d.TakeProfit[0].Price)
	assert.Equal(t, 1.0, d.TakeProfit[0].Weight)
	assert.Equal(t, domain.AmountFromFloat(2.25), d.TrailingStopDistance)
	assert.Equal(t, 0.5, d.PositionSizeMultiplier)
}

func TestBuildDirectional_Sell(t *testing.T) {
	d, _ := buildDirectional(domain.SideSell, 100, 2, 100, DefaultConfig())

	assert.Equal(t, domain.AmountFromFloat(103), d.StopLoss)
	assert.Equal(t, domain.AmountFromFloat(94), d.TakeProfit[0].Price)
	assert.Equal(t, domain.AmountFromFloat(1.5), d.TrailingStopDistance)
	assert.Equal(t, 1.0, d.PositionSizeMultiplier)
}

func TestBuildDirectional_MultiplierClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ATRMultiplier = 10

	d, _ := buildDirectional(domain.SideBuy, 100, 2, 50, cfg)

	assert.Equal(t, domain.AmountFromFloat(90), d.StopLoss, "stop distance capped at 5 ATR")
}

func TestBuildDirectional_LadderNormalized(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TakeProfitLadder = []LadderStep{
		{RiskMultiple: 2, Weight: 0.6},
		{RiskMultiple: 1, Weight: 0.6},
	}

	d, reasons := buildDirectional(domain.SideBuy, 100, 2, 50, cfg)

	require.Len(t, d.TakeProfit, 2)
	assert.Equal(t, domain.AmountFromFloat(103), d.TakeProfit[0].Price, "nearest level first")
	assert.Equal(t, domain.AmountFromFloat(106), d.TakeProfit[1].Price)
	assert.InDelta(t, 0.5, d.TakeProfit[0].Weight, 1e-12)
	assert.InDelta(t, 0.5, d.TakeProfit[1].Weight, 1e-12)
	assert.NoError(t, domain.ValidateTPLevels(d.TakeProfit))
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "normalized")
}

func TestConfigNormalize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ATRMultiplier = 0.1
	cfg.EMAFast, cfg.EMASlow = 30, 10
	cfg.RSIPeriod = 0
	cfg.UntrainedDiscount = 2

	got, warnings := cfg.Normalize()

	assert.Equal(t, MinATRMultiplier, got.ATRMultiplier)
	assert.Equal(t, 9, got.EMAFast)
	assert.Equal(t, 21, got.EMASlow)
	assert.Equal(t, 14, got.RSIPeriod)
	assert.Equal(t, 0.8, got.UntrainedDiscount)
	assert.Len(t, warnings, 4)

	_, none := DefaultConfig().Normalize()
	assert.Empty(t, none)
}

func TestDecide(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name      string
		bias      domain.TrendBias
		buy, sell float64
		want      domain.Direction
	}{
		{"buy", domain.TrendBullish, 80, 60, domain.DirectionBuy},
		{"gap too small", domain.TrendBullish, 80, 70, domain.DirectionHold},
		{"score too low", domain.TrendBullish, 69, 0, domain.DirectionHold},
		{"wrong bias", domain.TrendBearish, 100, 0, domain.DirectionHold},
		{"sell", domain.TrendBearish, 10, 85, domain.DirectionSell},
		{"neutral", domain.TrendNeutral, 100, 0, domain.DirectionHold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.bias, tt.buy, tt.sell, cfg))
		})
	}
}

func TestMaxScore(t *testing.T) {
	assert.Equal(t, 132.0, MaxScore)
}
