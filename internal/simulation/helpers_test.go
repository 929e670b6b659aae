package simulation

import (
	"signal-lab/internal/domain"
)

const minuteMs = int64(60_000)

var zeroCost = domain.ExecutionScenario{ScenarioID: "zero"}

func bar(i int, o, h, l, c float64) domain.Candle {
	return domain.Candle{TimestampMs: int64(i) * minuteMs, Open: o, High: h, Low: l, Close: c, Volume: 1}
}

type levelSpec struct {
	price, weight float64
}

func decision(side domain.Side, entry, stop, trail float64, tps ...levelSpec) domain.TradeDecision {
	levels := make([]domain.PartialTPLevel, 0, len(tps))
	for _, tp := range tps {
		levels = append(levels, domain.PartialTPLevel{Price: domain.AmountFromFloat(tp.price), Weight: tp.weight})
	}
	return domain.TradeDecision{
		SignalID:    "sig-1",
		Symbol:      "BTCUSDT",
		TimestampMs: 0,
		Price:       domain.AmountFromFloat(entry),
		Directional: &domain.Directional{
			Side:                   side,
			EntryPrice:             domain.AmountFromFloat(entry),
			StopLoss:               domain.AmountFromFloat(stop),
			TakeProfit:             levels,
			TrailingStopDistance:   domain.AmountFromFloat(trail),
			PositionSizeMultiplier: 1,
		},
	}
}

func zeroCostSimulator() *Simulator {
	cfg := DefaultConfig()
	cfg.Scenario = zeroCost
	return NewSimulator(cfg)
}
