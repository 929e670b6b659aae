package indicator

import "signal-lab/internal/domain"

// EngulfingAt classifies bar i against bar i-1. Index 0 or out of range is PatternNone.
func EngulfingAt(open, close []float64, i int) domain.Pattern {
	if i < 1 || i >= len(open) || i >= len(close) {
		return domain.PatternNone
	}
	o, c := open[i], close[i]
	po, pc := open[i-1], close[i-1]
	switch {
	case c > o && pc < po && o <= pc && c >= po:
		return domain.PatternBullishEngulfing
	case c < o && pc > po && o >= pc && c <= po:
		return domain.PatternBearishEngulfing
	default:
		return domain.PatternNone
	}
}

// Engulfing classifies every bar. Length n.
func Engulfing(open, close []float64) ([]domain.Pattern, error) {
	if err := sameLength(open, close); err != nil {
		return nil, err
	}
	out := make([]domain.Pattern, len(open))
	for i := range open {
		out[i] = EngulfingAt(open, close, i)
	}
	return out, nil
}
