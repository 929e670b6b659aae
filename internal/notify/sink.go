// Package notify publishes directional decisions to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"

	"signal-lab/internal/domain"
)

// ErrHoldDecision is returned when a hold decision is published.
var ErrHoldDecision = errors.New("hold decisions are not published")

// DecisionSink receives directional decisions.
type DecisionSink interface {
	Publish(ctx context.Context, d domain.TradeDecision) error
}

// Message is the wire form of a published decision. Prices are decimal strings.
type Message struct {
	SignalID    string    `json:"signal_id"`
	Symbol      string    `json:"symbol"`
	TimestampMs int64     `json:"timestamp_ms"`
	Direction   string    `json:"direction"`
	Price       string    `json:"price"`
	Confidence  float64   `json:"confidence"`
	BuyScore    float64   `json:"buy_score"`
	SellScore   float64   `json:"sell_score"`
	EntryPrice  string    `json:"entry_price"`
	StopLoss    string    `json:"stop_loss"`
	TakeProfit  []TPLevel `json:"take_profit"`
	Trailing    string    `json:"trailing_stop_distance,omitempty"`
	SizeFactor  float64   `json:"position_size_multiplier"`
	Reasons     []string  `json:"reasons"`
}

// TPLevel is one take-profit level of a Message.
type TPLevel struct {
	Price  string  `json:"price"`
	Weight float64 `json:"weight"`
}

// NewMessage converts a directional decision to its wire form.
func NewMessage(d domain.TradeDecision) (Message, error) {
	if d.IsHold() {
		return Message{}, ErrHoldDecision
	}
	dir := d.Directional
	m := Message{
		SignalID:    d.SignalID,
		Symbol:      d.Symbol,
		TimestampMs: d.TimestampMs,
		Direction:   string(d.Direction()),
		Price:       d.Price.String(),
		Confidence:  d.Confidence,
		BuyScore:    d.BuyScore,
		SellScore:   d.SellScore,
		EntryPrice:  dir.EntryPrice.String(),
		StopLoss:    dir.StopLoss.String(),
		SizeFactor:  dir.PositionSizeMultiplier,
		Reasons:     append([]string(nil), d.Reasons...),
	}
	if dir.TrailingStopDistance > 0 {
		m.Trailing = dir.TrailingStopDistance.String()
	}
	for _, l := range dir.TakeProfit {
		m.TakeProfit = append(m.TakeProfit, TPLevel{Price: l.Price.String(), Weight: l.Weight})
	}
	return m, nil
}

func encode(d domain.TradeDecision) ([]byte, error) {
	m, err := NewMessage(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
