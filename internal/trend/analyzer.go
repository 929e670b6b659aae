// Package trend classifies market regime and enforces a liquidity floor.
package trend

import (
	"fmt"

	"signal-lab/internal/domain"
	"signal-lab/internal/indicator"
)

// Config holds analyzer parameters.
type Config struct {
	ADXPeriod              int     // default 14
	ADXThreshold           float64 // trending when ADX exceeds this, default 20
	VWMAPeriod             int     // default 20
	LiquidityLookback      int     // bars averaged for traded value, default 50
	MinAvgTradedValue      float64 // liquidity floor in quote units, 0 disables
	BearishFloorMultiplier float64 // floor multiplier under bearish HTF bias, >= 1, default 1.5
	VolumeSurgeMultiple    float64 // default 2.0
}

// DefaultConfig returns the default analyzer configuration.
func DefaultConfig() Config {
	return Config{
		ADXPeriod:              14,
		ADXThreshold:           20,
		VWMAPeriod:             20,
		LiquidityLookback:      50,
		MinAvgTradedValue:      0,
		BearishFloorMultiplier: 1.5,
		VolumeSurgeMultiple:    2.0,
	}
}

// normalize replaces out-of-range values with defaults or bounds.
func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.ADXPeriod <= 0 {
		c.ADXPeriod = d.ADXPeriod
	}
	if c.ADXThreshold <= 0 {
		c.ADXThreshold = d.ADXThreshold
	}
	if c.VWMAPeriod <= 0 {
		c.VWMAPeriod = d.VWMAPeriod
	}
	if c.LiquidityLookback <= 0 {
		c.LiquidityLookback = d.LiquidityLookback
	}
	if c.MinAvgTradedValue < 0 {
		c.MinAvgTradedValue = 0
	}
	if c.BearishFloorMultiplier < 1 {
		c.BearishFloorMultiplier = 1
	}
	if c.VolumeSurgeMultiple <= 0 {
		c.VolumeSurgeMultiple = d.VolumeSurgeMultiple
	}
	return c
}

// Analyzer computes a TrendContext from a candle series.
type Analyzer struct {
	cfg Config
}

// NewAnalyzer creates an analyzer. Invalid parameters fall back to defaults.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg.normalize()}
}

// Config returns the normalized configuration.
func (a *Analyzer) Config() Config {
	return a.cfg
}

// MinBars returns the history required for a non-neutral context.
func (a *Analyzer) MinBars() int {
	return max(2*a.cfg.ADXPeriod, a.cfg.LiquidityLookback, a.cfg.VWMAPeriod+1, 2)
}

// Bias applies the ADX/DI rule to candles. ok is false when history is too short.
func (a *Analyzer) Bias(candles []domain.Candle) (domain.TrendBias, indicator.ADXPoint, bool) {
	cols := domain.Columns(candles)
	points, err := indicator.ADX(cols.High, cols.Low, cols.Close, a.cfg.ADXPeriod)
	if err != nil || len(points) == 0 {
		return domain.TrendNeutral, indicator.ADXPoint{}, false
	}
	p := points[len(points)-1]
	switch {
	case p.ADX > a.cfg.ADXThreshold && p.PlusDI > p.MinusDI:
		return domain.TrendBullish, p, true
	case p.ADX > a.cfg.ADXThreshold && p.MinusDI > p.PlusDI:
		return domain.TrendBearish, p, true
	default:
		return domain.TrendNeutral, p, true
	}
}

// Analyze classifies candles. htf is an optional higher-timeframe series whose
// bias tightens the liquidity floor when bearish. Short or illiquid input
// yields a neutral context with Reason set.
func (a *Analyzer) Analyze(candles, htf []domain.Candle) domain.TrendContext {
	ctx := domain.TrendContext{
		TrendBias:   domain.TrendNeutral,
		LastPattern: domain.PatternNone,
		HTFBias:     domain.TrendNeutral,
	}
	if len(htf) > 0 {
		if bias, _, ok := a.Bias(htf); ok {
			ctx.HTFBias = bias
		}
	}

	if need := a.MinBars(); len(candles) < need {
		ctx.Reason = fmt.Sprintf("insufficient history: %d < %d bars", len(candles), need)
		return ctx
	}

	window := candles[len(candles)-a.cfg.LiquidityLookback:]
	var total float64
	for _, c := range window {
		total += c.TradedValue()
	}
	ctx.AvgTradedValue = total / float64(len(window))

	floor := a.cfg.MinAvgTradedValue
	if ctx.HTFBias == domain.TrendBearish {
		floor *= a.cfg.BearishFloorMultiplier
	}
	if ctx.AvgTradedValue < floor {
		ctx.Reason = fmt.Sprintf("avg traded value %.2f below floor %.2f", ctx.AvgTradedValue, floor)
		return ctx
	}
	ctx.LiquidityOK = true

	bias, p, _ := a.Bias(candles)
	ctx.TrendBias = bias
	ctx.IsTrending = p.ADX > a.cfg.ADXThreshold
	ctx.ADX, ctx.PlusDI, ctx.MinusDI = p.ADX, p.PlusDI, p.MinusDI
	if bias == domain.TrendNeutral {
		ctx.Reason = fmt.Sprintf("no directional trend: adx %.2f", p.ADX)
	}

	last := candles[len(candles)-1]
	ctx.HasVolumeSurge = ctx.AvgTradedValue > 0 &&
		last.TradedValue() > a.cfg.VolumeSurgeMultiple*ctx.AvgTradedValue

	cols := domain.Columns(candles)
	if vwma, err := indicator.VWMA(cols.Close, cols.Volume, a.cfg.VWMAPeriod); err == nil {
		cur, ok1 := indicator.Last(vwma)
		prev, ok2 := indicator.Prev(vwma)
		ctx.VWMAFalling = ok1 && ok2 && cur < prev
	}
	ctx.LastPattern = indicator.EngulfingAt(cols.Open, cols.Close, len(candles)-1)

	return ctx
}
