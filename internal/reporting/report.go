package reporting

import "time"

// Report summarizes stored backtest runs.
type Report struct {
	GeneratedAt time.Time

	// Runs sorted by symbol, start time, run id
	Runs []RunRow

	// realistic vs pessimistic vs degraded, one row per symbol
	ScenarioSensitivity []ScenarioSensitivityRow
}

// RunRow is one backtest run in the runs table.
type RunRow struct {
	RunID                string
	Symbol               string
	StartMs              int64 // Unix ms
	EndMs                int64 // Unix ms
	TotalTrades          int
	WinRate              float64 // percent
	TotalPnLPct          float64
	MaxDrawdownPct       float64
	SharpeRatio          float64
	ProfitFactor         float64
	Expectancy           float64
	MaxConsecutiveLosses int
}

// ScenarioSensitivityRow compares total return across execution scenarios.
type ScenarioSensitivityRow struct {
	Symbol         string
	RealisticPct   float64
	PessimisticPct float64
	DegradedPct    float64
	DegradationPct float64 // (realistic - degraded) / |realistic| * 100, 0 if realistic == 0
}
