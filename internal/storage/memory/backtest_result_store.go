package memory

import (
	"context"
	"sort"
	"sync"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// BacktestResultStore is an in-memory implementation of storage.BacktestResultStore.
type BacktestResultStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestResult // keyed by run_id
}

// NewBacktestResultStore creates a new in-memory backtest result store.
func NewBacktestResultStore() *BacktestResultStore {
	return &BacktestResultStore{
		data: make(map[string]*domain.BacktestResult),
	}
}

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestResultStore) Insert(_ context.Context, r *domain.BacktestResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = cloneResult(r)
	return nil
}

// GetByRunID retrieves a run with its trade log. Returns ErrNotFound if not exists.
func (s *BacktestResultStore) GetByRunID(_ context.Context, runID string) (*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneResult(r), nil
}

// GetBySymbol retrieves run summaries for a symbol, ordered by run_id ASC.
func (s *BacktestResultStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BacktestResult
	for _, r := range s.data {
		if r.Symbol == symbol {
			summary := *r
			summary.Trades = nil
			summary.EquityCurve = nil
			result = append(result, &summary)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

func cloneResult(r *domain.BacktestResult) *domain.BacktestResult {
	c := *r
	c.Trades = append([]domain.TradeLog(nil), r.Trades...)
	c.EquityCurve = append([]domain.EquityPoint(nil), r.EquityCurve...)
	return &c
}

var _ storage.BacktestResultStore = (*BacktestResultStore)(nil)
