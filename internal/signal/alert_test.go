package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"signal-lab/internal/domain"
	"signal-lab/internal/indicator"
)

func TestAlertRule_Match(t *testing.T) {
	candles := []domain.Candle{
		{TimestampMs: 1, Open: 1, High: 1, Low: 1, Close: 1, Volume: 1},
		{TimestampMs: 2, Open: 2, High: 2, Low: 2, Close: 2, Volume: 1},
		{TimestampMs: 3, Open: 3, High: 3, Low: 3, Close: 3, Volume: 1},
	}
	closeSpec := indicator.Spec{Kind: indicator.KindClose}
	sma := indicator.Spec{Kind: indicator.KindSMA, Period: 2}
	table := indicator.Resolve(candles, []indicator.Spec{closeSpec, sma})

	tests := []struct {
		name string
		rule AlertRule
		want bool
	}{
		{"above", AlertRule{Left: closeSpec, Op: AlertAbove, Threshold: 2.5}, true},
		{"below", AlertRule{Left: closeSpec, Op: AlertBelow, Threshold: 2.5}, false},
		{"crosses above", AlertRule{Left: closeSpec, Op: AlertCrossesAbove, Threshold: 2.5}, true},
		{"crosses below", AlertRule{Left: closeSpec, Op: AlertCrossesBelow, Threshold: 2.5}, false},
		{"series above series", AlertRule{Left: closeSpec, Op: AlertAbove, Right: &sma}, true},
		{"unresolved series", AlertRule{Left: indicator.Spec{Kind: indicator.KindRSI, Period: 14}, Op: AlertAbove}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rule.Match(table))
		})
	}
}

func TestAlertRule_Validate(t *testing.T) {
	ok := AlertRule{Name: "a", Left: indicator.Spec{Kind: indicator.KindRSI, Period: 14}, Op: AlertAbove}
	assert.NoError(t, ok.Validate())

	badOp := ok
	badOp.Op = "sideways"
	assert.Error(t, badOp.Validate())

	badRight := ok
	badRight.Right = &indicator.Spec{}
	assert.Error(t, badRight.Validate())
}
