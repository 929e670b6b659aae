package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"signal-lab/internal/domain"
)

func testCandles(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		base := 100 + float64(i)
		out[i] = domain.Candle{
			TimestampMs: int64(i) * 60_000,
			Open:        base,
			High:        base + 2,
			Low:         base - 1,
			Close:       base + 1,
			Volume:      1000,
		}
	}
	return out
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" RSI ")
	require.NoError(t, err)
	assert.Equal(t, KindRSI, k)

	_, err = ParseKind("nope")
	assert.Error(t, err)

	for kind, name := range kindNames {
		assert.Equal(t, name, kind.String())
	}
}

func TestSpec_YAML(t *testing.T) {
	var spec Spec
	require.NoError(t, yaml.Unmarshal([]byte("kind: ema\nperiod: 21\n"), &spec))
	assert.Equal(t, Spec{Kind: KindEMA, Period: 21}, spec)
	assert.Equal(t, "ema(21)", spec.String())
}

func TestResolve(t *testing.T) {
	candles := testCandles(60)
	cols := domain.Columns(candles)
	ema := Spec{Kind: KindEMA, Period: 9}
	plus := Spec{Kind: KindPlusDI, Period: 14}
	adx := Spec{Kind: KindADX, Period: 14}
	atrPct := Spec{Kind: KindATRPercent, Period: 14}
	hist := Spec{Kind: KindMACDHistogram}

	table := Resolve(candles, []Spec{ema, plus, adx, atrPct, hist, ema})

	assert.Equal(t, 5, table.Len())
	assert.Equal(t, EMA(cols.Close, 9), table.Series(ema))

	points, err := ADX(cols.High, cols.Low, cols.Close, 14)
	require.NoError(t, err)
	lastADX, ok := table.Last(adx)
	require.True(t, ok)
	assert.Equal(t, points[len(points)-1].ADX, lastADX)

	atr, err := ATR(cols.High, cols.Low, cols.Close, 14)
	require.NoError(t, err)
	pct, ok := table.Last(atrPct)
	require.True(t, ok)
	assert.InDelta(t, atr[len(atr)-1]/cols.Close[len(cols.Close)-1]*100, pct, 1e-12)

	_, ok = table.Last(Spec{Kind: KindRSI, Period: 14})
	assert.False(t, ok, "unrequested spec is absent")
}
