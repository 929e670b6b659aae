package domain

import (
	"errors"
	"fmt"
)

// ErrTPOverallocated is returned when partial take-profit weights exceed the position.
var ErrTPOverallocated = errors.New("take-profit weights exceed 1.0")

// Direction of a decision.
type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
	DirectionHold Direction = "hold"
)

// Side of an open position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Sign returns +1 for long and -1 for short.
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// IsValid reports whether s is a known side.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// PartialTPLevel closes Weight of the original position at Price.
type PartialTPLevel struct {
	Price  Amount
	Weight float64 // (0, 1]
}

// Directional carries the risk parameters of a buy or sell decision.
type Directional struct {
	Side                   Side
	EntryPrice             Amount
	StopLoss               Amount
	TakeProfit             []PartialTPLevel // ordered nearest first
	TrailingStopDistance   Amount
	PositionSizeMultiplier float64 // (0, 1]
}

// TradeDecision is the output of one signal evaluation.
// Directional is nil for a hold; risk fields exist only on the directional branch.
type TradeDecision struct {
	SignalID    string
	Symbol      string
	TimestampMs int64  // timestamp of the last candle evaluated
	Price       Amount // last close
	Confidence  float64
	BuyScore    float64
	SellScore   float64
	Features    []float64
	Reasons     []string

	Directional *Directional
}

// Direction derives buy, sell or hold from the directional branch.
func (d TradeDecision) Direction() Direction {
	if d.Directional == nil {
		return DirectionHold
	}
	if d.Directional.Side == SideSell {
		return DirectionSell
	}
	return DirectionBuy
}

// IsHold reports whether the decision carries no position.
func (d TradeDecision) IsHold() bool {
	return d.Directional == nil
}

// NewHold returns a hold decision with the given reasons.
func NewHold(symbol string, timestampMs int64, price Amount, reasons ...string) TradeDecision {
	return TradeDecision{
		Symbol:      symbol,
		TimestampMs: timestampMs,
		Price:       price,
		Reasons:     append([]string(nil), reasons...),
	}
}

// ValidateTPLevels checks every weight is in (0, 1] and the sum does not exceed 1.
func ValidateTPLevels(levels []PartialTPLevel) error {
	var sum float64
	for i, l := range levels {
		if l.Weight <= 0 || l.Weight > 1 {
			return fmt.Errorf("%w: level %d weight %v outside (0, 1]", ErrTPOverallocated, i, l.Weight)
		}
		sum += l.Weight
	}
	if sum > 1+weightEpsilon {
		return fmt.Errorf("%w: sum %v", ErrTPOverallocated, sum)
	}
	return nil
}

const weightEpsilon = 1e-9

// NormalizeTPWeights scales weights down so they sum to at most 1.
// Non-positive weights are dropped. Reports whether anything changed.
func NormalizeTPWeights(levels []PartialTPLevel) ([]PartialTPLevel, bool) {
	out := make([]PartialTPLevel, 0, len(levels))
	changed := false
	var sum float64
	for _, l := range levels {
		if l.Weight <= 0 {
			changed = true
			continue
		}
		if l.Weight > 1 {
			l.Weight = 1
			changed = true
		}
		sum += l.Weight
		out = append(out, l)
	}
	if sum > 1+weightEpsilon {
		for i := range out {
			out[i].Weight /= sum
		}
		changed = true
	}
	return out, changed
}
