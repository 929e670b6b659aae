package memory

import (
	"context"
	"errors"
	"testing"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

func TestSimulatedTradeStore_InsertAndGet(t *testing.T) {
	store := NewSimulatedTradeStore()
	ctx := context.Background()

	stop := domain.AmountFromFloat(96)
	trade := &domain.SimulatedTrade{
		TradeID:   "trade1",
		SignalID:  "sig1",
		Symbol:    "BTCUSDT",
		Side:      domain.SideBuy,
		StopLoss:  &stop,
		OpenedAt:  1000,
		Outcome:   domain.OutcomeTP,
		PnL:       domain.AmountFromFloat(8),
		RMultiple: domain.RatioFromFloat(2),
		Label:     1,
		Fills:     []domain.Fill{{TimestampMs: 2000, Price: domain.AmountFromFloat(108), Fraction: 1, Reason: domain.ExitReasonTakeProfit}},
	}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PnL != trade.PnL {
		t.Errorf("PnL mismatch: got %s, want %s", got.PnL, trade.PnL)
	}

	// Mutating the returned copy must not affect the store.
	got.Fills[0].Fraction = 0.5
	*got.StopLoss = 0
	again, _ := store.GetByID(ctx, "trade1")
	if again.Fills[0].Fraction != 1 || *again.StopLoss != stop {
		t.Error("store returned shared state")
	}
}

func TestSimulatedTradeStore_DuplicateKey(t *testing.T) {
	store := NewSimulatedTradeStore()
	ctx := context.Background()

	trade := &domain.SimulatedTrade{TradeID: "trade1", Symbol: "BTCUSDT"}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, trade)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSimulatedTradeStore_InvalidAndNotFound(t *testing.T) {
	store := NewSimulatedTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.SimulatedTrade{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := store.GetByID(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSimulatedTradeStore_Queries(t *testing.T) {
	store := NewSimulatedTradeStore()
	ctx := context.Background()

	trades := []*domain.SimulatedTrade{
		{TradeID: "t3", Symbol: "BTCUSDT", OpenedAt: 3000},
		{TradeID: "t1", Symbol: "BTCUSDT", OpenedAt: 1000},
		{TradeID: "t2", Symbol: "ETHUSDT", OpenedAt: 2000},
	}
	for _, tr := range trades {
		if err := store.Insert(ctx, tr); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	btc, err := store.GetBySymbol(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(btc) != 2 || btc[0].TradeID != "t1" || btc[1].TradeID != "t3" {
		t.Errorf("GetBySymbol order wrong: %+v", btc)
	}

	ranged, err := store.GetByTimeRange(ctx, 1500, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(ranged) != 2 || ranged[0].TradeID != "t2" {
		t.Errorf("GetByTimeRange wrong: %+v", ranged)
	}
	if store.Len() != 3 {
		t.Errorf("Len = %d, want 3", store.Len())
	}
}
