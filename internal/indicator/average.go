package indicator

// SMA returns the simple moving average. Length n-period+1.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return []float64{}
	}
	out := make([]float64, 0, len(values)-period+1)
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return FillForward(out)
}

// EMA returns the exponential moving average seeded from the simple average of
// the first period values. Length n-period+1.
func EMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return []float64{}
	}
	k := 2.0 / float64(period+1)
	prev := mean(values[:period])
	out := make([]float64, 0, len(values)-period+1)
	out = append(out, prev)
	for _, v := range values[period:] {
		prev = (v-prev)*k + prev
		out = append(out, prev)
	}
	return FillForward(out)
}

// VWMA returns the volume-weighted moving average of close. A window with zero
// total volume yields 0. Length n-period+1.
func VWMA(close, volume []float64, period int) ([]float64, error) {
	if err := sameLength(close, volume); err != nil {
		return nil, err
	}
	if period <= 0 || len(close) < period {
		return []float64{}, nil
	}
	out := make([]float64, 0, len(close)-period+1)
	for end := period; end <= len(close); end++ {
		var pv, vol float64
		for i := end - period; i < end; i++ {
			pv += close[i] * volume[i]
			vol += volume[i]
		}
		if vol == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, pv/vol)
	}
	return FillForward(out), nil
}

// VWAP returns a rolling typical-price VWAP over period bars. A zero-volume
// window repeats the previous value, or the typical price when none exists.
// Length n-period+1.
func VWAP(high, low, close, volume []float64, period int) ([]float64, error) {
	if err := sameLength(close, high, low, volume); err != nil {
		return nil, err
	}
	if period <= 0 || len(close) < period {
		return []float64{}, nil
	}
	out := make([]float64, 0, len(close)-period+1)
	for end := period; end <= len(close); end++ {
		var pv, vol float64
		for i := end - period; i < end; i++ {
			tp := (high[i] + low[i] + close[i]) / 3
			pv += tp * volume[i]
			vol += volume[i]
		}
		if vol == 0 {
			if len(out) > 0 {
				out = append(out, out[len(out)-1])
			} else {
				last := end - 1
				out = append(out, (high[last]+low[last]+close[last])/3)
			}
			continue
		}
		out = append(out, pv/vol)
	}
	return FillForward(out), nil
}
