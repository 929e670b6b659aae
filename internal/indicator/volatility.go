package indicator

import "math"

// BollingerPoint is one Bollinger band bar.
type BollingerPoint struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// TrueRange returns the true range from bar 1 onward. Length n-1.
func TrueRange(high, low, close []float64) ([]float64, error) {
	if err := sameLength(close, high, low); err != nil {
		return nil, err
	}
	if len(close) < 2 {
		return []float64{}, nil
	}
	out := make([]float64, 0, len(close)-1)
	for i := 1; i < len(close); i++ {
		out = append(out, trueRange(high[i], low[i], close[i-1]))
	}
	return out, nil
}

func trueRange(high, low, prevClose float64) float64 {
	return math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
}

// ATR returns Wilder's average true range seeded with the mean of the first
// period true ranges. Length n-period.
func ATR(high, low, close []float64, period int) ([]float64, error) {
	tr, err := TrueRange(high, low, close)
	if err != nil {
		return nil, err
	}
	if period <= 0 || len(tr) < period {
		return []float64{}, nil
	}
	p := float64(period)
	prev := mean(tr[:period])
	out := make([]float64, 0, len(tr)-period+1)
	out = append(out, prev)
	for _, v := range tr[period:] {
		prev = (prev*(p-1) + v) / p
		out = append(out, prev)
	}
	return FillForward(out), nil
}

// Bollinger returns SMA bands at mult population standard deviations.
// Length n-period+1.
func Bollinger(values []float64, period int, mult float64) []BollingerPoint {
	mid := SMA(values, period)
	out := make([]BollingerPoint, len(mid))
	for i, m := range mid {
		var sq float64
		for _, v := range values[i : i+period] {
			sq += (v - m) * (v - m)
		}
		sd := math.Sqrt(sq / float64(period))
		out[i] = BollingerPoint{Upper: m + mult*sd, Middle: m, Lower: m - mult*sd}
	}
	return out
}
