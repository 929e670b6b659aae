package simulation

import "signal-lab/internal/domain"

// Path returns the assumed intrabar traversal of c. A bar closing at or above
// its open visits the high before the low; otherwise the low comes first.
func Path(c domain.Candle) [4]float64 {
	if c.Bullish() {
		return [4]float64{c.Open, c.High, c.Low, c.Close}
	}
	return [4]float64{c.Open, c.Low, c.High, c.Close}
}
