// Package signal fuses indicators, trend context and an external predictor into
// scored trade decisions with risk parameters.
package signal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"signal-lab/internal/domain"
	"signal-lab/internal/idhash"
	"signal-lab/internal/indicator"
	"signal-lab/internal/observability"
	"signal-lab/internal/storage"
	"signal-lab/internal/storage/memory"
	"signal-lab/internal/trend"
)

// Hold gates, used as metric labels.
const (
	GateInput     = "input"
	GateTrend     = "trend"
	GateATR       = "atr"
	GatePredictor = "predictor"
	GateScore     = "score"
	GateCooldown  = "cooldown"
	GateError     = "error"
)

// Input is one evaluation request.
type Input struct {
	Symbol  string
	Candles []domain.Candle // oldest first, last bar is the decision bar
	HTF     []domain.Candle // optional higher-timeframe series
}

// Options configures an Engine.
type Options struct {
	Config    Config
	Predictor Predictor             // nil uses NoopPredictor
	Cooldowns storage.CooldownStore // nil uses a private in-memory store
	Logger    *zap.Logger           // nil disables logging
}

// Engine evaluates candle series into decisions. Safe for concurrent use across
// symbols; cooldown state is shared through the cooldown store.
type Engine struct {
	cfg       Config
	specs     specSet
	allSpecs  []indicator.Spec
	trend     *trend.Analyzer
	predictor Predictor
	cooldowns storage.CooldownStore
	logger    *zap.Logger
	minBars   int
}

// NewEngine creates an engine. Out-of-range configuration is clamped and logged.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, warnings := opts.Config.Normalize()
	for _, w := range warnings {
		logger.Warn("signal config adjusted", zap.String("detail", w))
	}

	alerts := make([]AlertRule, 0, len(cfg.Alerts))
	for _, a := range cfg.Alerts {
		if err := a.Validate(); err != nil {
			logger.Warn("alert rule ignored", zap.Error(err))
			continue
		}
		alerts = append(alerts, a)
	}
	cfg.Alerts = alerts

	predictor := opts.Predictor
	if predictor == nil {
		predictor = NoopPredictor{}
	}
	cooldowns := opts.Cooldowns
	if cooldowns == nil {
		cooldowns = memory.NewCooldownStore()
	}

	specs := newSpecSet(cfg)
	all := specs.all()
	for _, a := range cfg.Alerts {
		all = append(all, a.Specs()...)
	}
	analyzer := trend.NewAnalyzer(cfg.Trend)

	return &Engine{
		cfg:       cfg,
		specs:     specs,
		allSpecs:  all,
		trend:     analyzer,
		predictor: predictor,
		cooldowns: cooldowns,
		logger:    logger,
		minBars:   minBars(cfg, analyzer.MinBars()),
	}
}

// Config returns the normalized configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// MinBars returns the warm-up length required before a non-hold decision.
func (e *Engine) MinBars() int {
	return e.minBars
}

// Evaluate scores the last bar of in.Candles. It never panics and never returns
// an error; failures surface as a hold decision with a diagnostic reason.
func (e *Engine) Evaluate(ctx context.Context, in Input) (decision domain.TradeDecision) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("signal evaluation panicked",
				zap.String("symbol", in.Symbol),
				zap.Any("panic", r),
			)
			decision = e.hold(in, GateError, fmt.Sprintf("internal error: %v", r))
		}
		observability.RecordEvaluation(time.Since(start).Seconds())
		observability.RecordDecision(string(decision.Direction()))
	}()

	if len(in.Candles) == 0 {
		return e.hold(in, GateInput, "no candles")
	}
	if len(in.Candles) < e.minBars {
		return e.hold(in, GateInput, fmt.Sprintf("insufficient history: %d < %d bars", len(in.Candles), e.minBars))
	}

	tc := e.trend.Analyze(in.Candles, in.HTF)
	if tc.Neutral() {
		return e.hold(in, GateTrend, "neutral trend context: "+tc.Reason)
	}

	table := indicator.Resolve(in.Candles, e.allSpecs)
	card := score(table, e.specs, tc, e.cfg)
	reasons := card.reasons
	for _, a := range e.cfg.Alerts {
		if a.Match(table) {
			reasons = append(reasons, "alert:"+a.Name)
		}
	}

	features := e.predictor.ExtractFeatures(FeatureContext{
		Symbol:      in.Symbol,
		TimestampMs: in.Candles[len(in.Candles)-1].TimestampMs,
		Snapshot:    card.snapshot,
		Trend:       tc,
	})
	withScores := func(d domain.TradeDecision) domain.TradeDecision {
		d.BuyScore, d.SellScore = card.buy, card.sell
		d.Features = features
		return d
	}

	atr, okATR := table.Last(e.specs.atr)
	atrPct, okPct := table.Last(e.specs.atrPct)
	if !okATR || !okPct || atrPct < e.cfg.MinATRPct || atrPct > e.cfg.MaxATRPct {
		return withScores(e.hold(in, GateATR, append(reasons,
			fmt.Sprintf("atr %.2f%% outside [%.2f%%, %.2f%%]", atrPct, e.cfg.MinATRPct, e.cfg.MaxATRPct))...))
	}

	discount := 1.0
	if e.predictor.IsTrained() {
		best, label := e.bestClass(features)
		if best <= e.cfg.MinPredictProbability {
			return withScores(e.hold(in, GatePredictor, append(reasons,
				fmt.Sprintf("predictor confidence %.2f at or below %.2f", best, e.cfg.MinPredictProbability))...))
		}
		reasons = append(reasons, fmt.Sprintf("predictor class %d p=%.2f", label, best))
	} else {
		discount = e.cfg.UntrainedDiscount
		reasons = append(reasons, fmt.Sprintf("predictor untrained, confidence x%.2f", discount))
	}

	direction := decide(tc.TrendBias, card.buy, card.sell, e.cfg)
	if direction == domain.DirectionHold {
		return withScores(e.hold(in, GateScore, append(reasons,
			fmt.Sprintf("scores buy %.1f sell %.1f below threshold for %s bias", card.buy, card.sell, tc.TrendBias))...))
	}

	side, raw := domain.SideBuy, card.buy
	if direction == domain.DirectionSell {
		side, raw = domain.SideSell, card.sell
	}
	confidence := min(max(raw/MaxScore*100*discount, 0), 100)
	last := in.Candles[len(in.Candles)-1]
	directional, riskReasons := buildDirectional(side, last.Close, atr, confidence, e.cfg)
	reasons = append(reasons, riskReasons...)

	acquired, err := e.cooldowns.TryAcquire(ctx, in.Symbol, last.TimestampMs, e.cfg.Cooldown.Milliseconds())
	if err != nil {
		e.logger.Warn("cooldown store failed", zap.String("symbol", in.Symbol), zap.Error(err))
		return withScores(e.hold(in, GateError, append(reasons, "cooldown store unavailable: "+err.Error())...))
	}
	if !acquired {
		return withScores(e.hold(in, GateCooldown, append(reasons,
			fmt.Sprintf("cooldown active: %s within %s", direction, e.cfg.Cooldown))...))
	}

	d := domain.TradeDecision{
		SignalID:    idhash.ComputeSignalID(in.Symbol, last.TimestampMs, string(direction)),
		Symbol:      in.Symbol,
		TimestampMs: last.TimestampMs,
		Price:       domain.AmountFromFloat(last.Close),
		Confidence:  confidence,
		Reasons:     reasons,
		Directional: directional,
	}
	e.logger.Debug("directional decision",
		zap.String("symbol", in.Symbol),
		zap.String("direction", string(direction)),
		zap.Float64("confidence", confidence),
		zap.Float64("buy_score", card.buy),
		zap.Float64("sell_score", card.sell),
	)
	return withScores(d)
}

// bestClass returns the highest predicted probability among the profitable
// labels. Confidence in a losing or flat outcome never admits a trade.
func (e *Engine) bestClass(features []float64) (float64, int) {
	best, label := 0.0, 0
	for _, l := range Labels {
		if l <= 0 {
			continue
		}
		if p := e.predictor.Predict(features, l); p > best {
			best, label = p, l
		}
	}
	return best, label
}

func (e *Engine) hold(in Input, gate string, reasons ...string) domain.TradeDecision {
	observability.RecordHold(gate)
	var ts int64
	var price domain.Amount
	if n := len(in.Candles); n > 0 {
		ts = in.Candles[n-1].TimestampMs
		price = domain.AmountFromFloat(in.Candles[n-1].Close)
	}
	d := domain.NewHold(in.Symbol, ts, price, reasons...)
	d.SignalID = idhash.ComputeSignalID(in.Symbol, ts, string(domain.DirectionHold))
	return d
}
