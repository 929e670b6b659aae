package backtest

import (
	"github.com/shopspring/decimal"

	"signal-lab/internal/domain"
	"signal-lab/internal/simulation"
)

var hundred = decimal.NewFromInt(100)

// position is the single open trade of a run.
type position struct {
	decision  domain.TradeDecision
	side      domain.Side
	sign      decimal.Decimal
	pos       *simulation.Position
	entryFill decimal.Decimal
	qty       decimal.Decimal
	reserved0 decimal.Decimal // capital set aside at entry
	reserved  decimal.Decimal // still set aside
	fees      decimal.Decimal
	pnl       decimal.Decimal // realized, net of fees
	exitValue decimal.Decimal
	exitQty   decimal.Decimal
	settled   int
}

// ledger tracks cash, the open position and the equity curve of one run.
type ledger struct {
	cfg     Config
	sc      domain.ExecutionScenario
	feeRate decimal.Decimal
	initial decimal.Decimal
	cash    decimal.Decimal
	open    *position

	trades       []domain.TradeLog
	equity       []domain.EquityPoint
	barsInMarket int
}

func newLedger(cfg Config, bars int) *ledger {
	initial := decimal.NewFromFloat(cfg.InitialCapital)
	return &ledger{
		cfg:     cfg,
		sc:      cfg.Scenario,
		feeRate: decimal.NewFromFloat(cfg.Scenario.FeePct).Div(hundred),
		initial: initial,
		cash:    initial,
		equity:  make([]domain.EquityPoint, 0, bars),
	}
}

// enter opens a position at the close of c. Returns false when no capital is
// available.
func (l *ledger) enter(d domain.TradeDecision, c domain.Candle) bool {
	dir := d.Directional
	pct := decimal.NewFromFloat(l.cfg.PositionSizePercent).Div(hundred)
	if l.cfg.ScaleBySizeMultiplier {
		if m := dir.PositionSizeMultiplier; m > 0 && m <= 1 {
			pct = pct.Mul(decimal.NewFromFloat(m))
		}
	}
	budget := l.cash.Mul(pct)
	withFee := decimal.NewFromInt(1).Add(l.feeRate)
	if budget.Mul(withFee).GreaterThan(l.cash) {
		budget = l.cash.Div(withFee)
	}
	if !budget.IsPositive() {
		return false
	}

	fill := l.sc.AdversePrice(dir.EntryPrice.Float(), dir.Side, true)
	entryFill := decimal.NewFromFloat(fill)
	fee := budget.Mul(l.feeRate)
	l.cash = l.cash.Sub(budget).Sub(fee)

	l.open = &position{
		decision:  d,
		side:      dir.Side,
		sign:      decimal.NewFromFloat(dir.Side.Sign()),
		pos:       simulation.NewPosition(*dir, fill, c.TimestampMs, !l.cfg.DisableTrailing),
		entryFill: entryFill,
		qty:       budget.Div(entryFill),
		reserved0: budget,
		reserved:  budget,
		fees:      fee,
		pnl:       fee.Neg(),
	}
	return true
}

// step advances the open position through c and settles any exits.
func (l *ledger) step(c domain.Candle) {
	p := l.open
	l.barsInMarket++
	p.pos.Step(c)
	if !p.pos.Closed() && l.cfg.MaxHoldBars > 0 && p.pos.Bars() >= l.cfg.MaxHoldBars {
		p.pos.Close(c.TimestampMs, c.Close, domain.ExitReasonMaxDuration)
	}
	l.settle()
}

// closeAll exits any open position at the close of the final bar.
func (l *ledger) closeAll(last domain.Candle) {
	if l.open == nil {
		return
	}
	l.open.pos.Close(last.TimestampMs, last.Close, domain.ExitReasonEndOfData)
	l.settle()
	if n := len(l.equity); n > 0 {
		l.equity[n-1].Equity = domain.AmountFromDecimal(l.cash)
	}
}

// settle books fills not yet applied to cash.
func (l *ledger) settle() {
	p := l.open
	fills := p.pos.Fills()
	for i := p.settled; i < len(fills); i++ {
		f := fills[i]
		px := decimal.NewFromFloat(l.sc.AdversePrice(f.Price, p.side, false))
		frac := decimal.NewFromFloat(f.Fraction)
		q := p.qty.Mul(frac)
		release := p.reserved0.Mul(frac)
		if p.pos.Closed() && i == len(fills)-1 {
			release = p.reserved
		}
		gross := px.Sub(p.entryFill).Mul(q).Mul(p.sign)
		fee := q.Mul(px).Mul(l.feeRate)

		l.cash = l.cash.Add(release).Add(gross).Sub(fee)
		p.reserved = p.reserved.Sub(release)
		p.pnl = p.pnl.Add(gross).Sub(fee)
		p.fees = p.fees.Add(fee)
		p.exitValue = p.exitValue.Add(px.Mul(q))
		p.exitQty = p.exitQty.Add(q)
	}
	p.settled = len(fills)
	if p.pos.Closed() {
		l.finish()
	}
}

func (l *ledger) finish() {
	p := l.open
	l.open = nil
	dir := p.decision.Directional
	fills := p.pos.Fills()
	final := fills[len(fills)-1]

	var r float64
	if dir.StopLoss > 0 {
		risk := p.entryFill.Sub(dir.StopLoss.Decimal()).Abs().Mul(p.qty)
		if risk.IsPositive() {
			r = p.pnl.Div(risk).InexactFloat64()
		}
	}
	rFixed := domain.RatioFromFloat(r)
	outcome := p.pos.Outcome()

	var exitPx decimal.Decimal
	if p.exitQty.IsPositive() {
		exitPx = p.exitValue.Div(p.exitQty)
	}
	l.trades = append(l.trades, domain.TradeLog{
		Seq:        len(l.trades) + 1,
		SignalID:   p.decision.SignalID,
		Side:       p.side,
		EntryMs:    p.decision.TimestampMs,
		ExitMs:     final.TimestampMs,
		EntryPrice: domain.AmountFromDecimal(p.entryFill),
		ExitPrice:  domain.AmountFromDecimal(exitPx),
		Quantity:   domain.AmountFromDecimal(p.qty),
		Reserved:   domain.AmountFromDecimal(p.reserved0),
		Fees:       domain.AmountFromDecimal(p.fees),
		PnL:        domain.AmountFromDecimal(p.pnl),
		PnLPct:     domain.RatioFromDecimal(p.pnl.Div(p.reserved0).Mul(hundred)),
		Outcome:    outcome,
		ExitReason: final.Reason,
		RMultiple:  rFixed,
		Label:      simulation.Label(outcome, rFixed.Float()),
		Confidence: domain.RatioFromFloat(p.decision.Confidence),
	})
}

// mark appends the equity point at the close of c.
func (l *ledger) mark(c domain.Candle) {
	eq := l.cash
	if p := l.open; p != nil {
		remaining := p.qty.Mul(decimal.NewFromFloat(p.pos.Remaining()))
		unrealized := decimal.NewFromFloat(c.Close).Sub(p.entryFill).Mul(remaining).Mul(p.sign)
		eq = eq.Add(p.reserved).Add(unrealized)
	}
	l.equity = append(l.equity, domain.EquityPoint{TimestampMs: c.TimestampMs, Equity: domain.AmountFromDecimal(eq)})
}

func (l *ledger) equityValues() []float64 {
	out := make([]float64, len(l.equity))
	for i, p := range l.equity {
		out[i] = p.Equity.Float()
	}
	return out
}
