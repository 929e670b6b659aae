package signal

import (
	"context"

	"signal-lab/internal/domain"
)

const minute = int64(60_000)

// risingSeries grows 1% per bar with a fixed relative range.
func risingSeries(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	prev := 100.0
	for i := range out {
		c := prev * 1.01
		out[i] = domain.Candle{
			TimestampMs: int64(i) * minute,
			Open:        prev,
			High:        c * 1.005,
			Low:         prev * 0.995,
			Close:       c,
			Volume:      1000,
		}
		prev = c
	}
	return out
}

// fallingSeries declines along an accelerating quadratic path.
func fallingSeries(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	prev := 300.0
	for i := range out {
		c := 300 - 0.01*float64((i+1)*(i+1))
		out[i] = domain.Candle{
			TimestampMs: int64(i) * minute,
			Open:        prev,
			High:        prev * 1.005,
			Low:         c * 0.995,
			Close:       c,
			Volume:      1000,
		}
		prev = c
	}
	return out
}

func flatSeries(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{TimestampMs: int64(i) * minute, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000}
	}
	return out
}

// stubPredictor is a trained predictor with fixed class probabilities.
type stubPredictor struct {
	probs   map[int]float64
	trained bool
	panics  bool
}

func (s *stubPredictor) ExtractFeatures(fc FeatureContext) []float64 {
	if s.panics {
		panic("feature extraction exploded")
	}
	return DefaultFeatures(fc)
}

func (s *stubPredictor) Predict(_ []float64, label int) float64 { return s.probs[label] }

func (s *stubPredictor) IsTrained() bool { return s.trained }

func (s *stubPredictor) IngestOutcome(context.Context, string, []float64, int, float64, float64) error {
	return nil
}
