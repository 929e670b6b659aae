package signal

import (
	"context"
	"sync"

	"signal-lab/internal/domain"
)

// Labels are the outcome classes a predictor scores, worst to best.
var Labels = []int{-2, -1, 0, 1, 2}

// Snapshot holds the most recent indicator values of one evaluation pass.
type Snapshot struct {
	Close     float64
	EMAFast   float64
	EMASlow   float64
	RSI       float64
	ATRPct    float64
	VWMA      float64
	VWAP      float64
	Momentum  float64
	MACDHist  float64
	StochK    float64
	StochD    float64
	OBVSlope  float64
	ADX       float64
	PlusDI    float64
	MinusDI   float64
	BuyScore  float64
	SellScore float64
}

// FeatureContext is the input to feature extraction.
type FeatureContext struct {
	Symbol      string
	TimestampMs int64
	Snapshot    Snapshot
	Trend       domain.TrendContext
}

// Predictor scores decisions with an externally trained model.
type Predictor interface {
	// ExtractFeatures returns a fixed-length feature vector.
	ExtractFeatures(fc FeatureContext) []float64
	// Predict returns the probability in [0, 1] that features end in label.
	Predict(features []float64, label int) float64
	// IsTrained reports whether Predict output should gate decisions.
	IsTrained() bool
	// IngestOutcome feeds a simulated outcome back for training.
	IngestOutcome(ctx context.Context, symbol string, features []float64, label int, rMultiple, pnl float64) error
}

// FeatureCount is the length of DefaultFeatures output.
const FeatureCount = 14

// DefaultFeatures scales the snapshot into a scale-free vector.
func DefaultFeatures(fc FeatureContext) []float64 {
	s := fc.Snapshot
	ratio := func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	}
	rel := func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a/b - 1
	}
	trending := 0.0
	if fc.Trend.IsTrending {
		trending = 1
	}
	surge := 0.0
	if fc.Trend.HasVolumeSurge {
		surge = 1
	}
	return []float64{
		rel(s.Close, s.EMAFast),
		rel(s.EMAFast, s.EMASlow),
		s.RSI / 100,
		s.ATRPct / 100,
		rel(s.VWMA, s.VWAP),
		ratio(s.Momentum, s.Close),
		ratio(s.MACDHist, s.Close),
		s.StochK / 100,
		(s.StochK - s.StochD) / 100,
		s.ADX / 100,
		(s.PlusDI - s.MinusDI) / 100,
		trending,
		surge,
		(s.BuyScore - s.SellScore) / MaxScore,
	}
}

// NoopPredictor is an untrained predictor that never gates decisions.
type NoopPredictor struct{}

// ExtractFeatures returns DefaultFeatures.
func (NoopPredictor) ExtractFeatures(fc FeatureContext) []float64 { return DefaultFeatures(fc) }

// Predict always returns 0.
func (NoopPredictor) Predict([]float64, int) float64 { return 0 }

// IsTrained always returns false.
func (NoopPredictor) IsTrained() bool { return false }

// IngestOutcome discards the outcome.
func (NoopPredictor) IngestOutcome(context.Context, string, []float64, int, float64, float64) error {
	return nil
}

// PriorPredictor estimates label probabilities from observed outcome frequencies.
// It reports itself trained once MinSamples outcomes have been ingested. The
// zero value is usable.
type PriorPredictor struct {
	MinSamples int

	mu     sync.RWMutex
	counts map[int]int
	total  int
}

// NewPriorPredictor creates a frequency predictor.
func NewPriorPredictor(minSamples int) *PriorPredictor {
	if minSamples <= 0 {
		minSamples = 50
	}
	return &PriorPredictor{MinSamples: minSamples, counts: make(map[int]int)}
}

// ExtractFeatures returns DefaultFeatures.
func (p *PriorPredictor) ExtractFeatures(fc FeatureContext) []float64 { return DefaultFeatures(fc) }

// Predict returns the observed frequency of label.
func (p *PriorPredictor) Predict(_ []float64, label int) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.total == 0 {
		return 0
	}
	return float64(p.counts[label]) / float64(p.total)
}

// IsTrained reports whether enough outcomes have been observed.
func (p *PriorPredictor) IsTrained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total >= p.MinSamples
}

// IngestOutcome counts label.
func (p *PriorPredictor) IngestOutcome(_ context.Context, _ string, _ []float64, label int, _, _ float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.counts == nil {
		p.counts = make(map[int]int)
	}
	p.counts[label]++
	p.total++
	return nil
}

var (
	_ Predictor = NoopPredictor{}
	_ Predictor = (*PriorPredictor)(nil)
)
