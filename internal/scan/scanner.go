// Package scan scores many symbols concurrently, publishes directional
// decisions and queues them for background replay.
package scan

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"signal-lab/internal/domain"
	"signal-lab/internal/notify"
	"signal-lab/internal/signal"
	"signal-lab/internal/simulation"
)

// ErrNoEngine is returned by NewScanner without an engine.
var ErrNoEngine = errors.New("scanner requires an engine")

// Series is the candle history of one symbol.
type Series struct {
	Candles []domain.Candle // oldest first
	HTF     []domain.Candle // optional higher timeframe
}

// Options configures a Scanner.
type Options struct {
	Engine      *signal.Engine
	Sink        notify.DecisionSink // optional
	Pool        *simulation.Pool    // optional, must be started
	Concurrency int                 // symbols scored in parallel, default 8
	Logger      *zap.Logger
}

// Request selects which bars are scored.
type Request struct {
	// AsOfMs scores the last bar at or before this time; 0 scores the latest bar.
	AsOfMs int64
	// Walk scores every bar from warm-up through AsOfMs in order.
	Walk bool
}

// Summary counts what a scan did.
type Summary struct {
	Symbols       int
	Evaluated     int
	Directional   int
	Published     int
	PublishFailed int
	Submitted     int
	SubmitFailed  int
}

// Scanner evaluates symbols against a shared engine.
type Scanner struct {
	engine      *signal.Engine
	sink        notify.DecisionSink
	pool        *simulation.Pool
	concurrency int
	logger      *zap.Logger
}

// NewScanner creates a scanner.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Engine == nil {
		return nil, ErrNoEngine
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		engine:      opts.Engine,
		sink:        opts.Sink,
		pool:        opts.Pool,
		concurrency: opts.Concurrency,
		logger:      logger,
	}, nil
}

type counters struct {
	evaluated, directional, published, publishFailed, submitted, submitFailed atomic.Int64
}

// Scan scores every symbol in data. Symbols are processed in sorted order by a
// bounded set of goroutines; bars within a symbol are scored sequentially.
// Sink and pool failures are counted and logged, not returned.
func (s *Scanner) Scan(ctx context.Context, data map[string]Series, req Request) (Summary, error) {
	symbols := make([]string, 0, len(data))
	for sym := range data {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, sym := range symbols {
		series := data[sym]
		g.Go(func() error {
			return s.scanSymbol(gctx, sym, series, req, &c)
		})
	}
	err := g.Wait()

	return Summary{
		Symbols:       len(symbols),
		Evaluated:     int(c.evaluated.Load()),
		Directional:   int(c.directional.Load()),
		Published:     int(c.published.Load()),
		PublishFailed: int(c.publishFailed.Load()),
		Submitted:     int(c.submitted.Load()),
		SubmitFailed:  int(c.submitFailed.Load()),
	}, err
}

func (s *Scanner) scanSymbol(ctx context.Context, symbol string, series Series, req Request, c *counters) error {
	last := lastIndex(series.Candles, req.AsOfMs)
	if last < 0 {
		s.logger.Debug("no candles in range", zap.String("symbol", symbol))
		return nil
	}
	first := last
	if req.Walk {
		first = max(s.engine.MinBars()-1, 0)
	}

	for i := first; i <= last; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar := series.Candles[i]
		d := s.engine.Evaluate(ctx, signal.Input{
			Symbol:  symbol,
			Candles: series.Candles[: i+1 : i+1],
			HTF:     domain.ClosedBars(series.HTF, bar.TimestampMs),
		})
		c.evaluated.Add(1)
		if d.IsHold() {
			continue
		}
		c.directional.Add(1)
		s.dispatch(ctx, d, series.Candles[i+1:], c)
	}
	return nil
}

func (s *Scanner) dispatch(ctx context.Context, d domain.TradeDecision, forward []domain.Candle, c *counters) {
	s.logger.Info("directional decision",
		zap.String("symbol", d.Symbol),
		zap.String("direction", string(d.Direction())),
		zap.Float64("confidence", d.Confidence),
		zap.String("signal_id", d.SignalID),
	)

	if s.sink != nil {
		if err := s.sink.Publish(ctx, d); err != nil {
			c.publishFailed.Add(1)
			s.logger.Warn("publish decision failed", zap.String("symbol", d.Symbol), zap.Error(err))
		} else {
			c.published.Add(1)
		}
	}

	if s.pool == nil || len(forward) == 0 {
		return
	}
	if err := s.pool.Submit(simulation.Job{Decision: d, Forward: forward}); err != nil {
		c.submitFailed.Add(1)
		s.logger.Warn("submit simulation failed", zap.String("symbol", d.Symbol), zap.Error(err))
		return
	}
	c.submitted.Add(1)
}

// lastIndex returns the index of the last candle at or before asOfMs, or the
// last candle when asOfMs is 0. Returns -1 when none qualifies.
func lastIndex(candles []domain.Candle, asOfMs int64) int {
	if asOfMs == 0 {
		return len(candles) - 1
	}
	return sort.Search(len(candles), func(i int) bool { return candles[i].TimestampMs > asOfMs }) - 1
}
