package memory

import (
	"context"
	"sort"
	"sync"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// SimulatedTradeStore is an in-memory implementation of storage.SimulatedTradeStore.
type SimulatedTradeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SimulatedTrade // keyed by trade_id
}

// NewSimulatedTradeStore creates a new in-memory simulated trade store.
func NewSimulatedTradeStore() *SimulatedTradeStore {
	return &SimulatedTradeStore{
		data: make(map[string]*domain.SimulatedTrade),
	}
}

// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
func (s *SimulatedTradeStore) Insert(_ context.Context, t *domain.SimulatedTrade) error {
	if t == nil || t.TradeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TradeID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[t.TradeID] = cloneTrade(t)
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *SimulatedTradeStore) GetByID(_ context.Context, tradeID string) (*domain.SimulatedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return cloneTrade(t), nil
}

// GetBySymbol retrieves all trades for a symbol, ordered by opened_at ASC.
func (s *SimulatedTradeStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.SimulatedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulatedTrade
	for _, t := range s.data {
		if t.Symbol == symbol {
			result = append(result, cloneTrade(t))
		}
	}

	sortTrades(result)
	return result, nil
}

// GetByTimeRange retrieves trades opened within [start, end] (inclusive).
func (s *SimulatedTradeStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.SimulatedTrade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SimulatedTrade
	for _, t := range s.data {
		if t.OpenedAt >= start && t.OpenedAt <= end {
			result = append(result, cloneTrade(t))
		}
	}

	sortTrades(result)
	return result, nil
}

// Len returns the number of stored trades.
func (s *SimulatedTradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func sortTrades(trades []*domain.SimulatedTrade) {
	sort.Slice(trades, func(i, j int) bool {
		if trades[i].OpenedAt != trades[j].OpenedAt {
			return trades[i].OpenedAt < trades[j].OpenedAt
		}
		return trades[i].TradeID < trades[j].TradeID
	})
}

func cloneTrade(t *domain.SimulatedTrade) *domain.SimulatedTrade {
	c := *t
	if t.StopLoss != nil {
		v := *t.StopLoss
		c.StopLoss = &v
	}
	if t.TrailingDist != nil {
		v := *t.TrailingDist
		c.TrailingDist = &v
	}
	c.TPLevels = append([]domain.PartialTPLevel(nil), t.TPLevels...)
	c.Fills = append([]domain.Fill(nil), t.Fills...)
	return &c
}

var _ storage.SimulatedTradeStore = (*SimulatedTradeStore)(nil)
