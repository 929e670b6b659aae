package signal

import (
	"fmt"
	"sort"

	"signal-lab/internal/domain"
)

// buildDirectional derives stop, take-profit ladder, trailing distance and size
// for a directional decision. Returned reasons describe any adjustment made.
func buildDirectional(side domain.Side, price, atr, confidence float64, cfg Config) (*domain.Directional, []string) {
	var reasons []string

	mult := min(max(cfg.ATRMultiplier, MinATRMultiplier), MaxATRMultiplier)
	stopDistance := atr * mult
	sign := side.Sign()

	ladder := cfg.TakeProfitLadder
	if len(ladder) == 0 {
		ladder = []LadderStep{{RiskMultiple: cfg.RiskRewardTarget, Weight: 1}}
	}
	ladder = append([]LadderStep(nil), ladder...)
	sort.SliceStable(ladder, func(i, j int) bool {
		return ladder[i].RiskMultiple < ladder[j].RiskMultiple
	})

	levels := make([]domain.PartialTPLevel, 0, len(ladder))
	for _, step := range ladder {
		levels = append(levels, domain.PartialTPLevel{
			Price:  domain.AmountFromFloat(price + sign*stopDistance*step.RiskMultiple),
			Weight: step.Weight,
		})
	}
	levels, changed := domain.NormalizeTPWeights(levels)
	if changed {
		reasons = append(reasons, fmt.Sprintf("take-profit weights normalized across %d levels", len(levels)))
	}

	return &domain.Directional{
		Side:                   side,
		EntryPrice:             domain.AmountFromFloat(price),
		StopLoss:               domain.AmountFromFloat(price - sign*stopDistance),
		TakeProfit:             levels,
		TrailingStopDistance:   domain.AmountFromFloat(stopDistance * (1 - confidence/200)),
		PositionSizeMultiplier: min(confidence/100, 1),
	}, reasons
}
