package simulation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"signal-lab/internal/domain"
	"signal-lab/internal/observability"
	"signal-lab/internal/storage"
)

// OutcomeSink receives labeled outcomes for training. signal.Predictor satisfies it.
type OutcomeSink interface {
	IngestOutcome(ctx context.Context, symbol string, features []float64, label int, rMultiple, pnl float64) error
}

// Runner simulates a decision, persists the trade and feeds the outcome back.
type Runner struct {
	simulator  *Simulator
	tradeStore storage.SimulatedTradeStore
	feedback   OutcomeSink
	logger     *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Simulator  *Simulator                  // nil uses DefaultConfig
	TradeStore storage.SimulatedTradeStore // optional
	Feedback   OutcomeSink                 // optional
	Logger     *zap.Logger
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	sim := opts.Simulator
	if sim == nil {
		sim = NewSimulator(DefaultConfig())
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		simulator:  sim,
		tradeStore: opts.TradeStore,
		feedback:   opts.Feedback,
		logger:     logger,
	}
}

// Run executes one replay.
// Steps:
//  1. Simulate the decision against forward candles
//  2. Persist the SimulatedTrade
//  3. Ingest the labeled outcome into the feedback sink
func (r *Runner) Run(ctx context.Context, d domain.TradeDecision, forward []domain.Candle) (*domain.SimulatedTrade, error) {
	start := time.Now()

	// 1. Simulate
	trade, err := r.simulator.Simulate(d, forward)
	if err != nil {
		return nil, err
	}
	observability.RecordSimulation(trade.Outcome, time.Since(start).Seconds())

	// 2. Persist SimulatedTrade
	if r.tradeStore != nil {
		if err := r.tradeStore.Insert(ctx, &trade); err != nil {
			return nil, fmt.Errorf("persist trade %s: %w", trade.TradeID, err)
		}
	}

	// 3. Feed the outcome back
	if r.feedback != nil {
		err := r.feedback.IngestOutcome(ctx, trade.Symbol, d.Features, trade.Label,
			trade.RMultiple.Float(), trade.PnL.Float())
		if err != nil {
			r.logger.Warn("outcome feedback failed",
				zap.String("trade_id", trade.TradeID),
				zap.Error(err),
			)
		}
	}

	r.logger.Debug("trade simulated",
		zap.String("symbol", trade.Symbol),
		zap.String("outcome", trade.Outcome),
		zap.String("pnl", trade.PnL.String()),
		zap.Int("label", trade.Label),
	)
	return &trade, nil
}
