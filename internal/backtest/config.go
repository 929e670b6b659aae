package backtest

import (
	"errors"
	"fmt"

	"signal-lab/internal/domain"
)

// ErrInvalidConfig is returned for harness settings that cannot be clamped.
var ErrInvalidConfig = errors.New("invalid backtest config")

// Config holds capital and cost parameters for one run.
type Config struct {
	InitialCapital        float64 `yaml:"initial_capital"`          // default 10000
	PositionSizePercent   float64 `yaml:"position_size_percent"`    // of current cash, (0, 100], default 10
	ScaleBySizeMultiplier bool    `yaml:"scale_by_size_multiplier"` // multiply by the decision's size multiplier
	BarsPerYear           float64 `yaml:"bars_per_year"`            // Sharpe annualization, default 525600 (1m bars)
	RiskFreeRate          float64 `yaml:"risk_free_rate"`           // annual, as a fraction
	MaxHoldBars           int     `yaml:"max_hold_bars"`            // 0 holds until stop, target or end of data
	DisableTrailing       bool    `yaml:"disable_trailing"`

	Scenario domain.ExecutionScenario `yaml:"-"`
}

// DefaultConfig returns the default harness configuration.
func DefaultConfig() Config {
	return Config{
		InitialCapital:      10000,
		PositionSizePercent: 10,
		BarsPerYear:         525600,
		Scenario:            domain.ScenarioConfigRealistic,
	}
}

// Validate reports settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital %v must be positive", ErrInvalidConfig, c.InitialCapital)
	}
	if c.PositionSizePercent <= 0 || c.PositionSizePercent > 100 {
		return fmt.Errorf("%w: position_size_percent %v outside (0, 100]", ErrInvalidConfig, c.PositionSizePercent)
	}
	if c.Scenario.FeePct < 0 || c.Scenario.SlippagePct < 0 || c.Scenario.SpreadPct < 0 {
		return fmt.Errorf("%w: negative execution costs in scenario %q", ErrInvalidConfig, c.Scenario.ScenarioID)
	}
	if c.MaxHoldBars < 0 {
		return fmt.Errorf("%w: max_hold_bars %d negative", ErrInvalidConfig, c.MaxHoldBars)
	}
	return nil
}

func (c Config) normalize() Config {
	if c.BarsPerYear <= 0 {
		c.BarsPerYear = DefaultConfig().BarsPerYear
	}
	if c.Scenario.ScenarioID == "" {
		c.Scenario.ScenarioID = "custom"
	}
	return c
}
