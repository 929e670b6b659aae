package indicator

// MACDPoint is one MACD bar.
type MACDPoint struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// StochasticPoint is one stochastic bar.
type StochasticPoint struct {
	K float64
	D float64
}

// RSI returns Wilder's relative strength index. Length n-period.
// Zero average loss yields 100; a flat window yields 50.
func RSI(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return []float64{}
	}
	var gain, loss float64
	for i := 1; i <= period; i++ {
		ch := values[i] - values[i-1]
		if ch > 0 {
			gain += ch
		} else {
			loss -= ch
		}
	}
	gain /= float64(period)
	loss /= float64(period)

	out := make([]float64, 0, len(values)-period)
	out = append(out, rsiValue(gain, loss))
	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		ch := values[i] - values[i-1]
		g, l := 0.0, 0.0
		if ch > 0 {
			g = ch
		} else {
			l = -ch
		}
		gain = (gain*(p-1) + g) / p
		loss = (loss*(p-1) + l) / p
		out = append(out, rsiValue(gain, loss))
	}
	return FillForward(out)
}

func rsiValue(gain, loss float64) float64 {
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	rs := gain / loss
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line, its signal EMA and the histogram.
// Requires 0 < fast < slow. Length n-slow-signal+2.
func MACD(values []float64, fast, slow, signal int) []MACDPoint {
	if fast <= 0 || slow <= fast || signal <= 0 || len(values) < slow+signal-1 {
		return []MACDPoint{}
	}
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	offset := slow - fast
	line := make([]float64, len(emaSlow))
	for i := range emaSlow {
		line[i] = emaFast[i+offset] - emaSlow[i]
	}
	sig := EMA(line, signal)
	out := make([]MACDPoint, len(sig))
	for i, s := range sig {
		m := line[i+signal-1]
		out[i] = MACDPoint{MACD: m, Signal: s, Histogram: m - s}
	}
	return out
}

// Stochastic returns %K over kPeriod bars and %D as the SMA of %K over dPeriod.
// A zero high-low range repeats the previous %K, or 50 when none exists.
// Length n-kPeriod-dPeriod+2.
func Stochastic(high, low, close []float64, kPeriod, dPeriod int) ([]StochasticPoint, error) {
	if err := sameLength(close, high, low); err != nil {
		return nil, err
	}
	if kPeriod <= 0 || dPeriod <= 0 || len(close) < kPeriod+dPeriod-1 {
		return []StochasticPoint{}, nil
	}
	k := make([]float64, 0, len(close)-kPeriod+1)
	for end := kPeriod; end <= len(close); end++ {
		hh, ll := high[end-kPeriod], low[end-kPeriod]
		for i := end - kPeriod + 1; i < end; i++ {
			if high[i] > hh {
				hh = high[i]
			}
			if low[i] < ll {
				ll = low[i]
			}
		}
		rng := hh - ll
		if rng == 0 {
			if len(k) > 0 {
				k = append(k, k[len(k)-1])
			} else {
				k = append(k, 50)
			}
			continue
		}
		k = append(k, (close[end-1]-ll)/rng*100)
	}
	d := SMA(k, dPeriod)
	out := make([]StochasticPoint, len(d))
	for i := range d {
		out[i] = StochasticPoint{K: k[i+dPeriod-1], D: d[i]}
	}
	return out, nil
}

// Momentum returns close[i] - close[i-period]. Length n-period.
func Momentum(values []float64, period int) []float64 {
	if period <= 0 || len(values) <= period {
		return []float64{}
	}
	out := make([]float64, 0, len(values)-period)
	for i := period; i < len(values); i++ {
		out = append(out, values[i]-values[i-period])
	}
	return FillForward(out)
}
