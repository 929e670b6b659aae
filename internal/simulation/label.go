package simulation

import "signal-lab/internal/domain"

// Label maps an outcome and R-multiple to a training class in [-2, 2].
// A trailing stop that locked in profit is scored like a take-profit;
// otherwise like a stop-loss.
func Label(outcome string, rMultiple float64) int {
	switch outcome {
	case domain.OutcomeSL:
		return stopLabel(rMultiple)
	case domain.OutcomeTP, domain.OutcomePartialTP:
		return profitLabel(rMultiple)
	case domain.OutcomeTrailingSL:
		if rMultiple > 0 {
			return profitLabel(rMultiple)
		}
		return stopLabel(rMultiple)
	default:
		return 0
	}
}

func stopLabel(r float64) int {
	if r <= -1.5 {
		return -2
	}
	return -1
}

func profitLabel(r float64) int {
	switch {
	case r >= 3:
		return 2
	case r >= 1.5:
		return 1
	default:
		return 0
	}
}
