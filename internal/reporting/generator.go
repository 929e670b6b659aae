package reporting

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"signal-lab/internal/domain"
	"signal-lab/internal/storage"
)

// Generator produces reports from stored backtest results.
type Generator struct {
	store storage.BacktestResultStore
	now   func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator over store.
func NewGenerator(store storage.BacktestResultStore) *Generator {
	return &Generator{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report over every stored run of symbols.
func (g *Generator) Generate(ctx context.Context, symbols []string) (*Report, error) {
	var rows []RunRow
	for _, symbol := range symbols {
		results, err := g.store.GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("load runs for %s: %w", symbol, err)
		}
		for _, r := range results {
			rows = append(rows, NewRunRow(r))
		}
	}
	SortRuns(rows)

	return &Report{
		GeneratedAt: g.now(),
		Runs:        rows,
	}, nil
}

// NewRunRow flattens a result for tabular output.
func NewRunRow(r *domain.BacktestResult) RunRow {
	return RunRow{
		RunID:                r.RunID,
		Symbol:               r.Symbol,
		StartMs:              r.StartMs,
		EndMs:                r.EndMs,
		TotalTrades:          r.TotalTrades,
		WinRate:              r.WinRate.Float(),
		TotalPnLPct:          r.TotalPnLPct.Float(),
		MaxDrawdownPct:       r.MaxDrawdownPct.Float(),
		SharpeRatio:          r.SharpeRatio.Float(),
		ProfitFactor:         r.ProfitFactor.Float(),
		Expectancy:           r.Expectancy.Float(),
		MaxConsecutiveLosses: r.MaxConsecutiveLosses,
	}
}

// SortRuns orders rows by symbol, start time, then run id.
func SortRuns(rows []RunRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		if rows[i].StartMs != rows[j].StartMs {
			return rows[i].StartMs < rows[j].StartMs
		}
		return rows[i].RunID < rows[j].RunID
	})
}

// CompareScenarios builds a sensitivity row from results keyed by scenario id.
// Missing scenarios contribute zero.
func CompareScenarios(symbol string, byScenario map[string]*domain.BacktestResult) ScenarioSensitivityRow {
	pct := func(id string) float64 {
		if r, ok := byScenario[id]; ok && r != nil {
			return r.TotalPnLPct.Float()
		}
		return 0
	}
	row := ScenarioSensitivityRow{
		Symbol:         symbol,
		RealisticPct:   pct(domain.ScenarioRealistic),
		PessimisticPct: pct(domain.ScenarioPessimistic),
		DegradedPct:    pct(domain.ScenarioDegraded),
	}
	if row.RealisticPct != 0 {
		row.DegradationPct = (row.RealisticPct - row.DegradedPct) / math.Abs(row.RealisticPct) * 100
	}
	return row
}
