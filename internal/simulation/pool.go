package simulation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"signal-lab/internal/domain"
	"signal-lab/internal/observability"
)

// Pool errors
var (
	ErrPoolSaturated = errors.New("simulation pool saturated")
	ErrPoolStopped   = errors.New("simulation pool stopped")
)

// OverflowPolicy decides what happens when the queue is full.
type OverflowPolicy int

const (
	// OverflowReject refuses the new job with ErrPoolSaturated.
	OverflowReject OverflowPolicy = iota
	// OverflowDropOldest discards the oldest queued job to admit the new one.
	OverflowDropOldest
)

func (p OverflowPolicy) String() string {
	if p == OverflowDropOldest {
		return "drop_oldest"
	}
	return "reject"
}

// Job is one decision to replay.
type Job struct {
	Decision domain.TradeDecision
	Forward  []domain.Candle
}

// Result is delivered to PoolOptions.OnResult after each job.
type Result struct {
	Job   Job
	Trade *domain.SimulatedTrade
	Err   error
}

// PoolStats counts job outcomes.
type PoolStats struct {
	Submitted int64
	Completed int64
	Failed    int64
	Rejected  int64
	Dropped   int64
}

// PoolOptions configures a Pool.
type PoolOptions struct {
	Workers   int // default 4
	QueueSize int // default 256
	Policy    OverflowPolicy
	Runner    *Runner
	OnResult  func(Result) // optional, called from worker goroutines
	Logger    *zap.Logger
}

// Pool runs simulations on a fixed set of workers fed by a bounded queue.
type Pool struct {
	jobs     chan Job
	workers  int
	policy   OverflowPolicy
	runner   *Runner
	onResult func(Result)
	logger   *zap.Logger
	tracer   trace.Tracer

	mu      sync.Mutex // guards stopped and queue admission
	stopped bool
	wg      sync.WaitGroup

	submitted, completed, failed, rejected, dropped atomic.Int64
}

// DefaultPoolOptions returns the default sizing with the reject policy.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{Workers: 4, QueueSize: 256, Policy: OverflowReject}
}

// NewPool creates a pool. Call Start before submitting.
func NewPool(opts PoolOptions) *Pool {
	d := DefaultPoolOptions()
	if opts.Workers <= 0 {
		opts.Workers = d.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = d.QueueSize
	}
	if opts.Runner == nil {
		opts.Runner = NewRunner(RunnerOptions{Logger: opts.Logger})
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		jobs:     make(chan Job, opts.QueueSize),
		workers:  opts.Workers,
		policy:   opts.Policy,
		runner:   opts.Runner,
		onResult: opts.OnResult,
		logger:   logger,
		tracer:   otel.Tracer("signal-lab/simulation"),
	}
}

// Start launches the workers. They exit when ctx is cancelled, discarding
// queued jobs, or when Stop drains the queue.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("started simulation pool",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.jobs)),
		zap.String("policy", p.policy.String()),
	)
}

// Submit enqueues a job without blocking. Hold decisions are refused with
// ErrHoldDecision.
func (p *Pool) Submit(job Job) error {
	if job.Decision.IsHold() {
		return ErrHoldDecision
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- job:
		p.submitted.Add(1)
		observability.UpdateSimulationQueue(len(p.jobs))
		return nil
	default:
	}

	if p.policy == OverflowDropOldest {
		select {
		case old := <-p.jobs:
			p.dropped.Add(1)
			observability.RecordSimulationDiscarded(p.policy.String())
			p.logger.Warn("simulation queue full, dropped oldest job",
				zap.String("signal_id", old.Decision.SignalID),
			)
		default:
		}
		select {
		case p.jobs <- job:
			p.submitted.Add(1)
			observability.UpdateSimulationQueue(len(p.jobs))
			return nil
		default:
		}
	}

	p.rejected.Add(1)
	observability.RecordSimulationDiscarded(OverflowReject.String())
	return ErrPoolSaturated
}

// Stop refuses new jobs, lets workers drain the queue and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Stats returns job counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
		Dropped:   p.dropped.Load(),
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(ctx, id, job)
		}
	}
}

func (p *Pool) process(ctx context.Context, workerID int, job Job) {
	ctx, span := p.tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		attribute.String("symbol", job.Decision.Symbol),
		attribute.String("signal_id", job.Decision.SignalID),
		attribute.Int("forward_bars", len(job.Forward)),
	))
	defer span.End()

	observability.UpdateSimulationQueue(len(p.jobs))
	trade, err := p.runner.Run(ctx, job.Decision, job.Forward)
	if err != nil {
		p.failed.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Warn("simulation failed",
			zap.Int("worker_id", workerID),
			zap.String("signal_id", job.Decision.SignalID),
			zap.Error(err),
		)
	} else {
		p.completed.Add(1)
		span.SetAttributes(attribute.String("outcome", trade.Outcome))
	}

	if p.onResult != nil {
		p.onResult(Result{Job: job, Trade: trade, Err: err})
	}
}
