package indicator

import "math"

// ADXPoint is one directional movement bar.
type ADXPoint struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX returns the average directional index with +DI and -DI using Wilder
// smoothing of directional movement and true range. Length n-2*period+1.
func ADX(high, low, close []float64, period int) ([]ADXPoint, error) {
	if err := sameLength(close, high, low); err != nil {
		return nil, err
	}
	if period <= 0 || len(close) < 2*period {
		return []ADXPoint{}, nil
	}
	n := len(close)
	tr := make([]float64, n-1)
	plusDM := make([]float64, n-1)
	minusDM := make([]float64, n-1)
	for i := 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i-1] = up
		}
		if down > up && down > 0 {
			minusDM[i-1] = down
		}
		tr[i-1] = trueRange(high[i], low[i], close[i-1])
	}

	p := float64(period)
	var sTR, sPlus, sMinus float64
	for i := 0; i < period; i++ {
		sTR += tr[i]
		sPlus += plusDM[i]
		sMinus += minusDM[i]
	}

	type di struct{ plus, minus, dx float64 }
	dis := make([]di, 0, len(tr)-period+1)
	appendDI := func() {
		var plus, minus, dx float64
		if sTR > 0 {
			plus = 100 * sPlus / sTR
			minus = 100 * sMinus / sTR
		}
		if sum := plus + minus; sum > 0 {
			dx = 100 * math.Abs(plus-minus) / sum
		}
		dis = append(dis, di{plus, minus, dx})
	}
	appendDI()
	for i := period; i < len(tr); i++ {
		sTR = sTR - sTR/p + tr[i]
		sPlus = sPlus - sPlus/p + plusDM[i]
		sMinus = sMinus - sMinus/p + minusDM[i]
		appendDI()
	}

	var adx float64
	for _, d := range dis[:period] {
		adx += d.dx
	}
	adx /= p
	out := make([]ADXPoint, 0, len(dis)-period+1)
	out = append(out, ADXPoint{ADX: adx, PlusDI: dis[period-1].plus, MinusDI: dis[period-1].minus})
	for _, d := range dis[period:] {
		adx = (adx*(p-1) + d.dx) / p
		out = append(out, ADXPoint{ADX: adx, PlusDI: d.plus, MinusDI: d.minus})
	}
	return out, nil
}
