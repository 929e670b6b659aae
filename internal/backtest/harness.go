// Package backtest replays the signal engine over a candle history under a
// single capital pool and aggregates the closed trades.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"signal-lab/internal/domain"
	"signal-lab/internal/idhash"
	"signal-lab/internal/observability"
	"signal-lab/internal/signal"
	"signal-lab/internal/storage"
	"signal-lab/internal/storage/memory"
)

// ErrNoCandles is returned when a run has no bars.
var ErrNoCandles = errors.New("no candles to backtest")

// Options configures a Harness.
type Options struct {
	Config    Config
	Engine    signal.Config
	Predictor signal.Predictor            // nil uses signal.NoopPredictor
	Store     storage.BacktestResultStore // optional
	Logger    *zap.Logger
}

// Harness runs backtests. Each Run is sequential and owns a fresh engine and
// cooldown store; separate runs may execute in parallel.
type Harness struct {
	cfg         Config
	engineCfg   signal.Config
	predictor   signal.Predictor
	store       storage.BacktestResultStore
	logger      *zap.Logger
	tracer      trace.Tracer
	fingerprint string
}

// NewHarness validates the configuration and creates a harness.
func NewHarness(opts Options) (*Harness, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engineCfg, warnings := opts.Engine.Normalize()
	for _, w := range warnings {
		logger.Warn("signal config adjusted", zap.String("detail", w))
	}
	cfg := opts.Config.normalize()

	canonical, err := yaml.Marshal(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("fingerprint engine config: %w", err)
	}
	canonical = fmt.Appendf(canonical, "|%+v|%+v", engineCfg.Trend, cfg)

	return &Harness{
		cfg:         cfg,
		engineCfg:   engineCfg,
		predictor:   opts.Predictor,
		store:       opts.Store,
		logger:      logger,
		tracer:      otel.Tracer("signal-lab/backtest"),
		fingerprint: idhash.Fingerprint(canonical),
	}, nil
}

// Config returns the normalized harness configuration.
func (h *Harness) Config() Config {
	return h.cfg
}

// Run backtests symbol over candles, oldest first. htf is an optional
// higher-timeframe series; only its closed bars are visible at each step.
// When persisting fails the computed result is returned with the error.
func (h *Harness) Run(ctx context.Context, symbol string, candles, htf []domain.Candle) (result *domain.BacktestResult, err error) {
	start := time.Now()
	ctx, span := h.tracer.Start(ctx, "backtest.run", trace.WithAttributes(
		attribute.String("symbol", symbol),
		attribute.Int("bars", len(candles)),
		attribute.String("scenario", h.cfg.Scenario.ScenarioID),
	))
	defer func() {
		status, trades := "ok", 0
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			trades = result.TotalTrades
			span.SetAttributes(attribute.Int("trades", trades))
		}
		observability.RecordBacktestRun(status, time.Since(start).Seconds(), trades)
		span.End()
	}()

	if len(candles) == 0 {
		return nil, ErrNoCandles
	}
	if err := domain.ValidateSeries(candles); err != nil {
		return nil, fmt.Errorf("candles: %w", err)
	}
	if err := domain.ValidateSeries(htf); err != nil {
		return nil, fmt.Errorf("htf candles: %w", err)
	}

	engine := signal.NewEngine(signal.Options{
		Config:    h.engineCfg,
		Predictor: h.predictor,
		Cooldowns: memory.NewCooldownStore(),
		Logger:    h.logger,
	})
	book := newLedger(h.cfg, len(candles))
	warmup := engine.MinBars()
	refused := 0

	for i, c := range candles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if book.open != nil {
			book.step(c)
		}
		if book.open == nil && i+1 >= warmup {
			d := engine.Evaluate(ctx, signal.Input{
				Symbol:  symbol,
				Candles: candles[: i+1 : i+1],
				HTF:     domain.ClosedBars(htf, c.TimestampMs),
			})
			if !d.IsHold() && !h.enter(book, d, c) {
				refused++
			}
		}
		book.mark(c)
	}

	last := candles[len(candles)-1]
	book.closeAll(last)

	result = h.assemble(symbol, candles, book)
	if h.store != nil {
		if err := h.store.Insert(ctx, result); err != nil {
			return result, fmt.Errorf("persist backtest %s: %w", result.RunID, err)
		}
	}

	h.logger.Info("backtest finished",
		zap.String("symbol", symbol),
		zap.String("run_id", result.RunID),
		zap.Int("bars", len(candles)),
		zap.Int("trades", result.TotalTrades),
		zap.Int("refused_entries", refused),
		zap.String("final_capital", result.FinalCapital.String()),
		zap.String("total_pnl_pct", result.TotalPnLPct.String()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

// enter opens d on book. A refusal is logged: the engine has already taken
// the cooldown for this bar, so the signal is lost.
func (h *Harness) enter(book *ledger, d domain.TradeDecision, c domain.Candle) bool {
	if book.enter(d, c) {
		return true
	}
	h.logger.Warn("entry refused, no capital available",
		zap.String("symbol", d.Symbol),
		zap.String("signal_id", d.SignalID),
		zap.Int64("timestamp_ms", c.TimestampMs),
		zap.String("cash", book.cash.String()),
	)
	return false
}

func (h *Harness) assemble(symbol string, candles []domain.Candle, book *ledger) *domain.BacktestResult {
	first, last := candles[0], candles[len(candles)-1]
	initial := h.cfg.InitialCapital
	s := computeSummary(book.trades, book.equityValues(), initial, book.barsInMarket, h.cfg)

	initialD := book.initial
	totalPct := book.cash.Sub(initialD).Div(initialD).Mul(hundred)

	return &domain.BacktestResult{
		RunID:                idhash.ComputeRunID(symbol, h.fingerprint, first.TimestampMs, last.TimestampMs, len(candles)),
		Symbol:               symbol,
		InitialCapital:       domain.AmountFromDecimal(initialD),
		FinalCapital:         domain.AmountFromDecimal(book.cash),
		TotalPnLPct:          domain.RatioFromDecimal(totalPct),
		TotalTrades:          len(book.trades),
		Wins:                 s.wins,
		Losses:               s.losses,
		MaxConsecutiveLosses: s.maxConsecutiveLosses,
		WinRate:              domain.RatioFromFloat(s.winRate),
		MaxDrawdownPct:       domain.RatioFromFloat(s.maxDrawdownPct),
		SharpeRatio:          domain.RatioFromFloat(s.sharpe),
		ProfitFactor:         domain.RatioFromFloat(s.profitFactor),
		Expectancy:           domain.AmountFromFloat(s.expectancy),
		PayoffRatio:          domain.RatioFromFloat(s.payoffRatio),
		TimeInMarketPct:      domain.RatioFromFloat(s.timeInMarketPct),
		AvgTradePnLPct:       domain.RatioFromFloat(s.avgTradePnLPct),
		AvgHoldingMs:         s.avgHoldingMs,
		StartMs:              first.TimestampMs,
		EndMs:                last.TimestampMs,
		Trades:               book.trades,
		EquityCurve:          book.equity,
	}
}
