package notify

import (
	"context"
	"errors"
	"sync"

	"signal-lab/internal/domain"
)

func buyDecision(symbol string) domain.TradeDecision {
	return domain.TradeDecision{
		SignalID:    "sig-" + symbol,
		Symbol:      symbol,
		TimestampMs: 1_700_000_000_000,
		Price:       domain.AmountFromFloat(100),
		Confidence:  0.82,
		BuyScore:    82,
		SellScore:   20,
		Reasons:     []string{"ema_cross_up"},
		Directional: &domain.Directional{
			Side:       domain.SideBuy,
			EntryPrice: domain.AmountFromFloat(100),
			StopLoss:   domain.AmountFromFloat(97),
			TakeProfit: []domain.PartialTPLevel{
				{Price: domain.AmountFromFloat(103), Weight: 0.5},
				{Price: domain.AmountFromFloat(106), Weight: 0.5},
			},
			TrailingStopDistance:   domain.AmountFromFloat(1.5),
			PositionSizeMultiplier: 1,
		},
	}
}

type fakeSink struct {
	mu   sync.Mutex
	got  []domain.TradeDecision
	fail bool
}

func (f *fakeSink) Publish(_ context.Context, d domain.TradeDecision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("sink down")
	}
	f.got = append(f.got, d)
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}
