package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"signal-lab/internal/domain"
	"signal-lab/internal/observability"
)

// Named labels a sink for metrics and logs.
type Named struct {
	Name string
	Sink DecisionSink
}

// Multi publishes to every sink concurrently and joins their errors.
type Multi struct {
	sinks  []Named
	logger *zap.Logger
}

// NewMulti creates a fan-out over sinks.
func NewMulti(logger *zap.Logger, sinks ...Named) *Multi {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multi{sinks: append([]Named(nil), sinks...), logger: logger}
}

var _ DecisionSink = (*Multi)(nil)

// Len returns the number of sinks.
func (m *Multi) Len() int {
	return len(m.sinks)
}

// Publish sends d to all sinks. Hold decisions are skipped without error.
func (m *Multi) Publish(ctx context.Context, d domain.TradeDecision) error {
	if d.IsHold() || len(m.sinks) == 0 {
		return nil
	}

	errs := make([]error, len(m.sinks))
	var wg sync.WaitGroup
	for i, s := range m.sinks {
		wg.Add(1)
		go func(i int, s Named) {
			defer wg.Done()
			err := s.Sink.Publish(ctx, d)
			observability.RecordNotification(s.Name, err)
			if err != nil {
				m.logger.Warn("notification failed",
					zap.String("sink", s.Name),
					zap.String("symbol", d.Symbol),
					zap.Error(err),
				)
				errs[i] = fmt.Errorf("%s: %w", s.Name, err)
			}
		}(i, s)
	}
	wg.Wait()
	return errors.Join(errs...)
}
