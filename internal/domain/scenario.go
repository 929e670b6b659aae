package domain

// ExecutionScenario holds execution cost assumptions, all in percent of notional or price.
type ExecutionScenario struct {
	ScenarioID  string  // "optimistic" | "realistic" | "pessimistic" | "degraded"
	FeePct      float64 // per side, percent of notional
	SlippagePct float64 // adverse price adjustment per fill
	SpreadPct   float64 // full bid/ask spread; half is paid per fill
}

// Scenario ID constants
const (
	ScenarioOptimistic  = "optimistic"
	ScenarioRealistic   = "realistic"
	ScenarioPessimistic = "pessimistic"
	ScenarioDegraded    = "degraded"
)

// Predefined execution scenarios
var (
	ScenarioConfigOptimistic = ExecutionScenario{
		ScenarioID:  ScenarioOptimistic,
		FeePct:      0.02,
		SlippagePct: 0.01,
		SpreadPct:   0,
	}

	ScenarioConfigRealistic = ExecutionScenario{
		ScenarioID:  ScenarioRealistic,
		FeePct:      0.1,
		SlippagePct: 0.05,
		SpreadPct:   0.02,
	}

	ScenarioConfigPessimistic = ExecutionScenario{
		ScenarioID:  ScenarioPessimistic,
		FeePct:      0.2,
		SlippagePct: 0.2,
		SpreadPct:   0.1,
	}

	ScenarioConfigDegraded = ExecutionScenario{
		ScenarioID:  ScenarioDegraded,
		FeePct:      0.3,
		SlippagePct: 0.5,
		SpreadPct:   0.3,
	}
)

// ScenarioByID returns a predefined scenario.
func ScenarioByID(id string) (ExecutionScenario, bool) {
	switch id {
	case ScenarioOptimistic:
		return ScenarioConfigOptimistic, true
	case ScenarioRealistic:
		return ScenarioConfigRealistic, true
	case ScenarioPessimistic:
		return ScenarioConfigPessimistic, true
	case ScenarioDegraded:
		return ScenarioConfigDegraded, true
	}
	return ExecutionScenario{}, false
}

// AdversePrice moves price against the trader by slippage plus half the spread.
// Entering a long or exiting a short pays up; the opposite fills lower.
func (s ExecutionScenario) AdversePrice(price float64, side Side, entering bool) float64 {
	adj := (s.SlippagePct + s.SpreadPct/2) / 100
	buying := (side == SideBuy) == entering
	if buying {
		return price * (1 + adj)
	}
	return price * (1 - adj)
}

// Fee returns the fee charged on notional.
func (s ExecutionScenario) Fee(notional float64) float64 {
	if notional < 0 {
		notional = -notional
	}
	return notional * s.FeePct / 100
}
