package domain

// TrendBias is the directional regime of a series.
type TrendBias string

const (
	TrendBullish TrendBias = "bullish"
	TrendBearish TrendBias = "bearish"
	TrendNeutral TrendBias = "neutral"
)

// Pattern is the candle pattern detected on the most recent bar.
type Pattern string

const (
	PatternNone             Pattern = "none"
	PatternBullishEngulfing Pattern = "bullish_engulfing"
	PatternBearishEngulfing Pattern = "bearish_engulfing"
)

// TrendContext summarizes regime and liquidity for one evaluation pass.
type TrendContext struct {
	IsTrending     bool
	TrendBias      TrendBias
	HasVolumeSurge bool
	VWMAFalling    bool
	LastPattern    Pattern

	// Diagnostics
	LiquidityOK    bool
	AvgTradedValue float64
	ADX            float64
	PlusDI         float64
	MinusDI        float64
	HTFBias        TrendBias
	Reason         string // set when the context was forced neutral
}

// Neutral reports whether downstream scoring must be skipped.
func (t TrendContext) Neutral() bool {
	return t.TrendBias == TrendNeutral
}
