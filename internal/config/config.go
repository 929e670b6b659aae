// Package config loads the YAML configuration shared by the commands.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"signal-lab/internal/backtest"
	"signal-lab/internal/domain"
	"signal-lab/internal/logging"
	"signal-lab/internal/signal"
	"signal-lab/internal/simulation"
	"signal-lab/internal/tracing"
	"signal-lab/internal/trend"
)

// ErrInvalid is returned for settings that cannot be defaulted.
var ErrInvalid = errors.New("invalid config")

// Environment overrides.
const (
	EnvPostgresDSN   = "SIGNAL_LAB_POSTGRES_DSN"
	EnvClickhouseDSN = "SIGNAL_LAB_CLICKHOUSE_DSN"
	EnvRedisAddr     = "SIGNAL_LAB_REDIS_ADDR"
	EnvLogLevel      = "SIGNAL_LAB_LOG_LEVEL"
)

// Config is the root of the YAML file.
type Config struct {
	Log         logging.Config   `yaml:"log"`
	Tracing     tracing.Config   `yaml:"tracing"`
	MetricsAddr string           `yaml:"metrics_addr"`
	Engine      signal.Config    `yaml:"engine"`
	Trend       TrendConfig      `yaml:"trend"`
	Scenario    ScenarioConfig   `yaml:"scenario"`
	Backtest    backtest.Config  `yaml:"backtest"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Predictor   PredictorConfig  `yaml:"predictor"`
	Storage     StorageConfig    `yaml:"storage"`
	Notify      NotifyConfig     `yaml:"notify"`
}

// TrendConfig mirrors trend.Config for YAML.
type TrendConfig struct {
	ADXPeriod              int     `yaml:"adx_period"`
	ADXThreshold           float64 `yaml:"adx_threshold"`
	VWMAPeriod             int     `yaml:"vwma_period"`
	LiquidityLookback      int     `yaml:"liquidity_lookback"`
	MinAvgTradedValue      float64 `yaml:"min_avg_traded_value"`
	BearishFloorMultiplier float64 `yaml:"bearish_floor_multiplier"`
	VolumeSurgeMultiple    float64 `yaml:"volume_surge_multiple"`
}

// ScenarioConfig selects a predefined execution scenario by name and
// optionally overrides its costs.
type ScenarioConfig struct {
	Name        string   `yaml:"name"`
	FeePct      *float64 `yaml:"fee_pct,omitempty"`
	SlippagePct *float64 `yaml:"slippage_pct,omitempty"`
	SpreadPct   *float64 `yaml:"spread_pct,omitempty"`
}

// SimulationConfig configures background replay.
type SimulationConfig struct {
	Notional        float64       `yaml:"notional"`
	MaxHold         time.Duration `yaml:"max_hold"`
	MaxBars         int           `yaml:"max_bars"`
	DisableTrailing bool          `yaml:"disable_trailing"`
	Workers         int           `yaml:"workers"`
	QueueSize       int           `yaml:"queue_size"`
	Overflow        string        `yaml:"overflow"` // reject | drop_oldest
}

// PredictorConfig selects the prediction collaborator.
type PredictorConfig struct {
	Kind       string `yaml:"kind"` // noop | prior
	MinSamples int    `yaml:"min_samples"`
}

// StorageConfig holds connection settings. Empty values select in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
}

// NotifyConfig enables decision sinks.
type NotifyConfig struct {
	Redis        bool          `yaml:"redis"`
	WebSocketURL string        `yaml:"websocket_url"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	sim := simulation.DefaultConfig()
	pool := simulation.DefaultPoolOptions()
	return Config{
		Log:         logging.Config{Level: "info"},
		Tracing:     tracing.Config{ServiceName: "signal-lab"},
		MetricsAddr: ":9090",
		Engine:      signal.DefaultConfig(),
		Trend:       trendToYAML(trend.DefaultConfig()),
		Scenario:    ScenarioConfig{Name: domain.ScenarioRealistic},
		Backtest:    backtest.DefaultConfig(),
		Simulation: SimulationConfig{
			Notional:  sim.Notional,
			MaxHold:   sim.MaxHold,
			MaxBars:   sim.MaxBars,
			Workers:   pool.Workers,
			QueueSize: pool.QueueSize,
			Overflow:  simulation.OverflowReject.String(),
		},
		Predictor: PredictorConfig{Kind: "noop", MinSamples: 20},
		Storage:   StorageConfig{KeyPrefix: "signal-lab"},
		Notify:    NotifyConfig{WriteTimeout: 5 * time.Second},
	}
}

// Load reads path over the defaults, applies environment overrides, normalizes
// and validates. An empty path uses defaults only. Normalization warnings are
// returned for the caller to log.
func Load(path string) (Config, []string, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, nil, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()
		if cfg, err = Decode(f); err != nil {
			return Config{}, nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)

	cfg, warnings := cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, warnings, err
	}
	return cfg, warnings, nil
}

// Decode parses YAML from r over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides connection settings and log level from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPostgresDSN); ok && v != "" {
		c.Storage.PostgresDSN = v
	}
	if v, ok := lookup(EnvClickhouseDSN); ok && v != "" {
		c.Storage.ClickhouseDSN = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Storage.RedisAddr = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
}

// Normalize clamps engine and simulation parameters, returning one warning per adjustment.
func (c Config) Normalize() (Config, []string) {
	engine, warnings := c.Engine.Normalize()
	c.Engine = engine

	d := Default()
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}
	if c.Simulation.Workers <= 0 {
		warn("simulation.workers %d not positive, using %d", c.Simulation.Workers, d.Simulation.Workers)
		c.Simulation.Workers = d.Simulation.Workers
	}
	if c.Simulation.QueueSize <= 0 {
		warn("simulation.queue_size %d not positive, using %d", c.Simulation.QueueSize, d.Simulation.QueueSize)
		c.Simulation.QueueSize = d.Simulation.QueueSize
	}
	if c.Predictor.MinSamples <= 0 {
		warn("predictor.min_samples %d not positive, using %d", c.Predictor.MinSamples, d.Predictor.MinSamples)
		c.Predictor.MinSamples = d.Predictor.MinSamples
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = d.Storage.KeyPrefix
	}
	return c, warnings
}

// Validate reports settings that cannot be clamped.
func (c Config) Validate() error {
	if _, err := c.Scenario.Resolve(); err != nil {
		return err
	}
	if _, err := c.Overflow(); err != nil {
		return err
	}
	switch c.Predictor.Kind {
	case "noop", "prior":
	default:
		return fmt.Errorf("%w: predictor.kind %q", ErrInvalid, c.Predictor.Kind)
	}
	for _, rule := range c.Engine.Alerts {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	bt, err := c.BacktestConfig()
	if err != nil {
		return err
	}
	if err := bt.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Resolve returns the named scenario with overrides applied.
func (s ScenarioConfig) Resolve() (domain.ExecutionScenario, error) {
	name := s.Name
	if name == "" {
		name = domain.ScenarioRealistic
	}
	sc, ok := domain.ScenarioByID(name)
	if !ok {
		return domain.ExecutionScenario{}, fmt.Errorf("%w: unknown scenario %q", ErrInvalid, name)
	}
	custom := false
	if s.FeePct != nil {
		sc.FeePct, custom = *s.FeePct, true
	}
	if s.SlippagePct != nil {
		sc.SlippagePct, custom = *s.SlippagePct, true
	}
	if s.SpreadPct != nil {
		sc.SpreadPct, custom = *s.SpreadPct, true
	}
	if custom {
		sc.ScenarioID = name + "+custom"
	}
	if sc.FeePct < 0 || sc.SlippagePct < 0 || sc.SpreadPct < 0 {
		return domain.ExecutionScenario{}, fmt.Errorf("%w: negative costs in scenario %q", ErrInvalid, name)
	}
	return sc, nil
}

// Overflow parses simulation.overflow.
func (c Config) Overflow() (simulation.OverflowPolicy, error) {
	switch c.Simulation.Overflow {
	case "", simulation.OverflowReject.String():
		return simulation.OverflowReject, nil
	case simulation.OverflowDropOldest.String():
		return simulation.OverflowDropOldest, nil
	}
	return 0, fmt.Errorf("%w: simulation.overflow %q", ErrInvalid, c.Simulation.Overflow)
}

// EngineConfig returns the signal engine configuration with trend settings attached.
func (c Config) EngineConfig() signal.Config {
	e := c.Engine
	e.Trend = c.Trend.toTrend()
	e.Alerts = append([]signal.AlertRule(nil), c.Engine.Alerts...)
	return e
}

// BacktestConfig returns the harness configuration with the resolved scenario.
func (c Config) BacktestConfig() (backtest.Config, error) {
	sc, err := c.Scenario.Resolve()
	if err != nil {
		return backtest.Config{}, err
	}
	b := c.Backtest
	b.Scenario = sc
	return b, nil
}

// SimulatorConfig returns the simulator configuration with the resolved scenario.
func (c Config) SimulatorConfig() (simulation.Config, error) {
	sc, err := c.Scenario.Resolve()
	if err != nil {
		return simulation.Config{}, err
	}
	return simulation.Config{
		Notional:        c.Simulation.Notional,
		MaxHold:         c.Simulation.MaxHold,
		MaxBars:         c.Simulation.MaxBars,
		Scenario:        sc,
		DisableTrailing: c.Simulation.DisableTrailing,
	}, nil
}

// NewPredictor builds the configured prediction collaborator.
func (c Config) NewPredictor() signal.Predictor {
	if c.Predictor.Kind == "prior" {
		return signal.NewPriorPredictor(c.Predictor.MinSamples)
	}
	return signal.NoopPredictor{}
}

// Dump renders c as YAML.
func (c Config) Dump() ([]byte, error) {
	return yaml.Marshal(c)
}

func (t TrendConfig) toTrend() trend.Config {
	return trend.Config{
		ADXPeriod:              t.ADXPeriod,
		ADXThreshold:           t.ADXThreshold,
		VWMAPeriod:             t.VWMAPeriod,
		LiquidityLookback:      t.LiquidityLookback,
		MinAvgTradedValue:      t.MinAvgTradedValue,
		BearishFloorMultiplier: t.BearishFloorMultiplier,
		VolumeSurgeMultiple:    t.VolumeSurgeMultiple,
	}
}

func trendToYAML(t trend.Config) TrendConfig {
	return TrendConfig{
		ADXPeriod:              t.ADXPeriod,
		ADXThreshold:           t.ADXThreshold,
		VWMAPeriod:             t.VWMAPeriod,
		LiquidityLookback:      t.LiquidityLookback,
		MinAvgTradedValue:      t.MinAvgTradedValue,
		BearishFloorMultiplier: t.BearishFloorMultiplier,
		VolumeSurgeMultiple:    t.VolumeSurgeMultiple,
	}
}
