package signal

import (
	"fmt"
	"time"

	"signal-lab/internal/trend"
)

// LadderStep places one partial take-profit at RiskMultiple times the stop distance.
type LadderStep struct {
	RiskMultiple float64 `yaml:"risk_multiple"`
	Weight       float64 `yaml:"weight"`
}

// Config holds engine parameters.
type Config struct {
	EMAFast         int     `yaml:"ema_fast"`
	EMASlow         int     `yaml:"ema_slow"`
	RSIPeriod       int     `yaml:"rsi_period"`
	RSIOversold     float64 `yaml:"rsi_oversold"`
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	StochPeriod     int     `yaml:"stoch_period"`
	StochOversold   float64 `yaml:"stoch_oversold"`
	StochOverbought float64 `yaml:"stoch_overbought"`
	ATRPeriod       int     `yaml:"atr_period"`
	MinATRPct       float64 `yaml:"min_atr_pct"`
	MaxATRPct       float64 `yaml:"max_atr_pct"`
	VWMAPeriod      int     `yaml:"vwma_period"`
	VWAPPeriod      int     `yaml:"vwap_period"`
	MomentumPeriod  int     `yaml:"momentum_period"`

	MinScore    float64 `yaml:"min_score"`
	MinScoreGap float64 `yaml:"min_score_gap"`

	ATRMultiplier    float64      `yaml:"atr_multiplier"`
	RiskRewardTarget float64      `yaml:"risk_reward_target"`
	TakeProfitLadder []LadderStep `yaml:"take_profit_ladder"`

	MinPredictProbability float64 `yaml:"min_predict_probability"`
	UntrainedDiscount     float64 `yaml:"untrained_discount"`

	Cooldown time.Duration `yaml:"cooldown"`

	Trend  trend.Config `yaml:"-"`
	Alerts []AlertRule  `yaml:"alerts"`
}

// Bounds applied by Normalize.
const (
	MinATRMultiplier = 0.5
	MaxATRMultiplier = 5.0
)

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		EMAFast:               9,
		EMASlow:               21,
		RSIPeriod:             14,
		RSIOversold:           30,
		RSIOverbought:         70,
		StochPeriod:           14,
		StochOversold:         20,
		StochOverbought:       80,
		ATRPeriod:             14,
		MinATRPct:             0.2,
		MaxATRPct:             5,
		VWMAPeriod:            20,
		VWAPPeriod:            50,
		MomentumPeriod:        10,
		MinScore:              70,
		MinScoreGap:           15,
		ATRMultiplier:         1.5,
		RiskRewardTarget:      2,
		MinPredictProbability: 0.7,
		UntrainedDiscount:     0.8,
		Cooldown:              15 * time.Minute,
		Trend:                 trend.DefaultConfig(),
	}
}

// Normalize clamps out-of-range parameters and returns a warning per adjustment.
func (c Config) Normalize() (Config, []string) {
	d := DefaultConfig()
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	periods := []struct {
		name string
		v    *int
		def  int
	}{
		{"ema_fast", &c.EMAFast, d.EMAFast},
		{"ema_slow", &c.EMASlow, d.EMASlow},
		{"rsi_period", &c.RSIPeriod, d.RSIPeriod},
		{"stoch_period", &c.StochPeriod, d.StochPeriod},
		{"atr_period", &c.ATRPeriod, d.ATRPeriod},
		{"vwma_period", &c.VWMAPeriod, d.VWMAPeriod},
		{"vwap_period", &c.VWAPPeriod, d.VWAPPeriod},
		{"momentum_period", &c.MomentumPeriod, d.MomentumPeriod},
	}
	for _, p := range periods {
		if *p.v <= 0 {
			warn("%s %d not positive, using %d", p.name, *p.v, p.def)
			*p.v = p.def
		}
	}
	if c.EMAFast >= c.EMASlow {
		warn("ema_fast %d not below ema_slow %d, using %d/%d", c.EMAFast, c.EMASlow, d.EMAFast, d.EMASlow)
		c.EMAFast, c.EMASlow = d.EMAFast, d.EMASlow
	}
	if c.MinATRPct < 0 || c.MaxATRPct <= c.MinATRPct {
		warn("atr range [%v, %v] invalid, using [%v, %v]", c.MinATRPct, c.MaxATRPct, d.MinATRPct, d.MaxATRPct)
		c.MinATRPct, c.MaxATRPct = d.MinATRPct, d.MaxATRPct
	}
	if c.ATRMultiplier < MinATRMultiplier || c.ATRMultiplier > MaxATRMultiplier {
		clamped := min(max(c.ATRMultiplier, MinATRMultiplier), MaxATRMultiplier)
		warn("atr_multiplier %v clamped to %v", c.ATRMultiplier, clamped)
		c.ATRMultiplier = clamped
	}
	if c.RiskRewardTarget <= 0 {
		warn("risk_reward_target %v not positive, using %v", c.RiskRewardTarget, d.RiskRewardTarget)
		c.RiskRewardTarget = d.RiskRewardTarget
	}
	if c.MinScore <= 0 || c.MinScore > MaxScore {
		warn("min_score %v outside (0, %v], using %v", c.MinScore, MaxScore, d.MinScore)
		c.MinScore = d.MinScore
	}
	if c.MinScoreGap < 0 {
		warn("min_score_gap %v negative, using %v", c.MinScoreGap, d.MinScoreGap)
		c.MinScoreGap = d.MinScoreGap
	}
	if c.MinPredictProbability < 0 || c.MinPredictProbability >= 1 {
		warn("min_predict_probability %v outside [0, 1), using %v", c.MinPredictProbability, d.MinPredictProbability)
		c.MinPredictProbability = d.MinPredictProbability
	}
	if c.UntrainedDiscount <= 0 || c.UntrainedDiscount > 1 {
		warn("untrained_discount %v outside (0, 1], using %v", c.UntrainedDiscount, d.UntrainedDiscount)
		c.UntrainedDiscount = d.UntrainedDiscount
	}
	if c.Cooldown < 0 {
		warn("cooldown %v negative, using 0", c.Cooldown)
		c.Cooldown = 0
	}
	c.TakeProfitLadder = append([]LadderStep(nil), c.TakeProfitLadder...)
	for i, step := range c.TakeProfitLadder {
		if step.RiskMultiple <= 0 {
			warn("take_profit_ladder[%d] risk_multiple %v not positive, using %v", i, step.RiskMultiple, c.RiskRewardTarget)
			c.TakeProfitLadder[i].RiskMultiple = c.RiskRewardTarget
		}
	}
	return c, warnings
}
