package verification

import (
	"context"
	"errors"
	"fmt"

	"signal-lab/internal/backtest"
	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// ErrRunNotFound is returned when the run ID doesn't exist.
var ErrRunNotFound = errors.New("backtest run not found")

// Harness re-runs a backtest. *backtest.Harness satisfies it.
type Harness interface {
	Run(ctx context.Context, symbol string, candles, htf []domain.Candle) (*domain.BacktestResult, error)
}

var _ Harness = (*backtest.Harness)(nil)

// ReplayVerifier compares stored runs against fresh harness runs.
type ReplayVerifier struct {
	store   storage.BacktestResultStore
	harness Harness
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	Store   storage.BacktestResultStore
	// Harness must not persist, or the replay collides with the stored run.
	Harness Harness
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{store: opts.Store, harness: opts.Harness}
}

// VerifyRun loads runID and replays it over candles and htf.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string, candles, htf []domain.Candle) (*VerificationResult, error) {
	// 1. Load stored run
	stored, err := v.store.GetByRunID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	// 2. Replay
	replayed, err := v.harness.Run(ctx, stored.Symbol, candles, htf)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", runID, err)
	}

	// 3. Compare results
	divergences := CompareBacktestResults(stored, replayed)

	return &VerificationResult{
		RunID:       runID,
		Match:       len(divergences) == 0,
		Divergences: divergences,
	}, nil
}
