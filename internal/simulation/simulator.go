// Package simulation replays directional decisions against forward candles.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"signal-lab/internal/domain"
	"signal-lab/internal/idhash"
)

// Simulator errors
var (
	ErrHoldDecision    = errors.New("hold decisions are not simulated")
	ErrInvalidDecision = errors.New("invalid directional decision")
)

// Config holds simulator parameters.
type Config struct {
	Notional        float64       // quote value of a full-size position, default 1000
	MaxHold         time.Duration // default 24h
	MaxBars         int           // default 1440
	Scenario        domain.ExecutionScenario
	DisableTrailing bool
}

// DefaultConfig returns the default simulator configuration.
func DefaultConfig() Config {
	return Config{
		Notional: 1000,
		MaxHold:  24 * time.Hour,
		MaxBars:  1440,
		Scenario: domain.ScenarioConfigRealistic,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.Notional <= 0 {
		c.Notional = d.Notional
	}
	if c.MaxHold <= 0 {
		c.MaxHold = d.MaxHold
	}
	if c.MaxBars <= 0 {
		c.MaxBars = d.MaxBars
	}
	if c.Scenario.ScenarioID == "" {
		c.Scenario.ScenarioID = "custom"
	}
	return c
}

// Simulator replays one decision at a time. It holds no mutable state and is
// safe for concurrent use.
type Simulator struct {
	cfg Config
}

// NewSimulator creates a simulator. Invalid limits fall back to defaults.
func NewSimulator(cfg Config) *Simulator {
	return &Simulator{cfg: cfg.normalize()}
}

// Config returns the normalized configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Simulate replays d against forward, the candles after the decision bar.
// Candles at or before the decision timestamp are skipped. The replay stops at
// full closure, MaxBars, MaxHold or the end of forward, whichever comes first.
func (s *Simulator) Simulate(d domain.TradeDecision, forward []domain.Candle) (domain.SimulatedTrade, error) {
	if d.IsHold() {
		return domain.SimulatedTrade{}, ErrHoldDecision
	}
	dir := d.Directional
	if !dir.Side.IsValid() || dir.EntryPrice <= 0 {
		return domain.SimulatedTrade{}, fmt.Errorf("%w: side %q entry %s", ErrInvalidDecision, dir.Side, dir.EntryPrice)
	}
	if err := domain.ValidateTPLevels(dir.TakeProfit); err != nil {
		return domain.SimulatedTrade{}, err
	}
	if err := checkLevelSides(dir); err != nil {
		return domain.SimulatedTrade{}, err
	}

	sc := s.cfg.Scenario
	entryFill := sc.AdversePrice(dir.EntryPrice.Float(), dir.Side, true)
	size := dir.PositionSizeMultiplier
	if size <= 0 || size > 1 {
		size = 1
	}
	qty := s.cfg.Notional * size / entryFill

	pos := NewPosition(*dir, entryFill, d.TimestampMs, !s.cfg.DisableTrailing)
	maxHoldMs := s.cfg.MaxHold.Milliseconds()
	timeoutReason := domain.ExitReasonEndOfData
	for _, c := range forward {
		if c.TimestampMs <= d.TimestampMs {
			continue
		}
		if pos.Bars() >= s.cfg.MaxBars || c.TimestampMs-d.TimestampMs > maxHoldMs {
			timeoutReason = domain.ExitReasonMaxDuration
			break
		}
		pos.Step(c)
		if pos.Closed() {
			break
		}
	}
	if !pos.Closed() {
		pos.Close(pos.LastTimestamp(), pos.LastPrice(), timeoutReason)
	}

	pnl := -sc.Fee(qty * entryFill)
	exits := pos.Fills()
	fills := make([]domain.Fill, 0, len(exits))
	for _, f := range exits {
		px := sc.AdversePrice(f.Price, dir.Side, false)
		q := qty * f.Fraction
		pnl += dir.Side.Sign()*(px-entryFill)*q - sc.Fee(q*px)
		fills = append(fills, domain.Fill{
			TimestampMs: f.TimestampMs,
			Price:       domain.AmountFromFloat(px),
			Fraction:    f.Fraction,
			Reason:      f.Reason,
		})
	}

	var r float64
	if dir.StopLoss > 0 {
		if risk := math.Abs(entryFill-dir.StopLoss.Float()) * qty; risk > 0 {
			r = pnl / risk
		}
	}
	rFixed := domain.RatioFromFloat(r)
	outcome := pos.Outcome()
	mfe, mae, mfeAt, maeAt := pos.Excursions()
	closedAt := exits[len(exits)-1].TimestampMs

	trade := domain.SimulatedTrade{
		TradeID:               idhash.ComputeTradeID(d.SignalID, sc.ScenarioID, d.TimestampMs),
		SignalID:              d.SignalID,
		Symbol:                d.Symbol,
		Side:                  dir.Side,
		EntryPrice:            domain.AmountFromFloat(entryFill),
		TPLevels:              append([]domain.PartialTPLevel(nil), dir.TakeProfit...),
		Quantity:              domain.AmountFromFloat(qty),
		Fills:                 fills,
		OpenedAt:              d.TimestampMs,
		ClosedAt:              closedAt,
		Outcome:               outcome,
		PnL:                   domain.AmountFromFloat(pnl),
		RMultiple:             rFixed,
		Label:                 Label(outcome, rFixed.Float()),
		MaxFavorableExcursion: domain.RatioFromFloat(mfe),
		MaxAdverseExcursion:   domain.RatioFromFloat(mae),
		DurationMs:            closedAt - d.TimestampMs,
		TimeToMFEMs:           mfeAt,
		TimeToMAEMs:           maeAt,
	}
	if dir.StopLoss > 0 {
		stop := dir.StopLoss
		trade.StopLoss = &stop
	}
	if dir.TrailingStopDistance > 0 && !s.cfg.DisableTrailing {
		trail := dir.TrailingStopDistance
		trade.TrailingDist = &trail
	}
	return trade, nil
}

// checkLevelSides requires the stop on the losing side of entry and every
// take-profit on the winning side. A zero stop means none.
func checkLevelSides(dir *domain.Directional) error {
	sign := int64(1)
	if dir.Side == domain.SideSell {
		sign = -1
	}
	if dir.StopLoss > 0 && sign*int64(dir.StopLoss-dir.EntryPrice) >= 0 {
		return fmt.Errorf("%w: %s stop %s not beyond entry %s", ErrInvalidDecision, dir.Side, dir.StopLoss, dir.EntryPrice)
	}
	for i, tp := range dir.TakeProfit {
		if sign*int64(tp.Price-dir.EntryPrice) <= 0 {
			return fmt.Errorf("%w: %s take-profit %d at %s not beyond entry %s", ErrInvalidDecision, dir.Side, i, tp.Price, dir.EntryPrice)
		}
	}
	return nil
}
