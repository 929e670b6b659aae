package memory

import (
	"context"
	"sync"

	"signal-lab/internal/storage"
)

// CooldownStore is an in-memory implementation of storage.CooldownStore.
type CooldownStore struct {
	mu   sync.Mutex
	last map[string]int64 // keyed by symbol
}

// NewCooldownStore creates a new in-memory cooldown store.
func NewCooldownStore() *CooldownStore {
	return &CooldownStore{
		last: make(map[string]int64),
	}
}

// TryAcquire records nowMs for symbol unless a prior decision lies within windowMs.
// A timestamp earlier than the recorded one is treated as inside the window.
func (s *CooldownStore) TryAcquire(_ context.Context, symbol string, nowMs, windowMs int64) (bool, error) {
	if symbol == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.last[symbol]; ok && nowMs-prev < windowMs {
		return false, nil
	}
	s.last[symbol] = nowMs
	return true, nil
}

// Last returns the last recorded timestamp for symbol.
func (s *CooldownStore) Last(_ context.Context, symbol string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.last[symbol]
	return ts, ok, nil
}

var _ storage.CooldownStore = (*CooldownStore)(nil)
