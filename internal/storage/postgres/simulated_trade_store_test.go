package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

func TestSimulatedTradeStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulatedTradeStore(pool)
	ctx := context.Background()

	trade := sampleTrade("trade-001", "BTCUSDT", 1700000000000)
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "trade-001")
	require.NoError(t, err)
	assert.Equal(t, trade, got)
}

func TestSimulatedTradeStore_NullableRiskFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulatedTradeStore(pool)
	ctx := context.Background()

	trade := sampleTrade("trade-nostop", "BTCUSDT", 1700000000000)
	trade.StopLoss = nil
	trade.TrailingDist = ptr(domain.AmountFromFloat(1.25))
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "trade-nostop")
	require.NoError(t, err)
	assert.Nil(t, got.StopLoss)
	require.NotNil(t, got.TrailingDist)
	assert.Equal(t, *trade.TrailingDist, *got.TrailingDist)
}

func TestSimulatedTradeStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulatedTradeStore(pool)
	ctx := context.Background()

	trade := sampleTrade("trade-dup", "BTCUSDT", 1700000000000)
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSimulatedTradeStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulatedTradeStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSimulatedTradeStore_Queries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulatedTradeStore(pool)
	ctx := context.Background()

	for _, tr := range []*domain.SimulatedTrade{
		sampleTrade("c", "BTCUSDT", 3000),
		sampleTrade("a", "BTCUSDT", 1000),
		sampleTrade("b", "ETHUSDT", 2000),
	} {
		require.NoError(t, store.Insert(ctx, tr))
	}

	btc, err := store.GetBySymbol(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, btc, 2)
	assert.Equal(t, "a", btc[0].TradeID)
	assert.Equal(t, "c", btc[1].TradeID)

	ranged, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.Equal(t, "a", ranged[0].TradeID)
	assert.Equal(t, "b", ranged[1].TradeID)

	none, err := store.GetBySymbol(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSimulatedTradeStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSimulatedTradeStore(pool)
	err := store.Insert(context.Background(), &domain.SimulatedTrade{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
