package simulation

import (
	"math"
	"sort"

	"signal-lab/internal/domain"
)

const fractionEpsilon = 1e-9

// ExitFill is one exit at a raw level price, before execution costs.
type ExitFill struct {
	TimestampMs int64
	Price       float64
	Fraction    float64 // of the original quantity
	Reason      string
}

type tpLevel struct {
	price  float64
	weight float64
	filled bool
}

// Position tracks one open trade against successive candles using the
// intrabar path rule. It holds no execution costs; callers apply them to fills.
type Position struct {
	side      domain.Side
	sign      float64
	entry     float64
	stop      float64
	hasStop   bool
	trailDist float64
	levels    []tpLevel
	remaining float64
	openedAt  int64

	best     float64
	trailOn  bool
	trail    float64
	fills    []ExitFill
	bars     int
	lastPx   float64
	lastTs   int64
	mfe, mae float64
	mfeAt    int64
	maeAt    int64
}

// NewPosition opens a position at entry. Trailing is ignored when the decision
// carries no trailing distance or trailing is false.
func NewPosition(d domain.Directional, entry float64, openedAt int64, trailing bool) *Position {
	p := &Position{
		side:      d.Side,
		sign:      d.Side.Sign(),
		entry:     entry,
		remaining: 1,
		openedAt:  openedAt,
		best:      entry,
		lastPx:    entry,
		lastTs:    openedAt,
	}
	if d.StopLoss > 0 {
		p.stop, p.hasStop = d.StopLoss.Float(), true
	}
	if trailing && d.TrailingStopDistance > 0 {
		p.trailDist = d.TrailingStopDistance.Float()
	}
	for _, l := range d.TakeProfit {
		if l.Price > 0 && l.Weight > 0 {
			p.levels = append(p.levels, tpLevel{price: l.Price.Float(), weight: l.Weight})
		}
	}
	sort.SliceStable(p.levels, func(i, j int) bool {
		return math.Abs(p.levels[i].price-entry) < math.Abs(p.levels[j].price-entry)
	})
	return p
}

// Closed reports whether no exposure remains.
func (p *Position) Closed() bool { return p.remaining <= fractionEpsilon }

// Remaining returns the open fraction of the original quantity.
func (p *Position) Remaining() float64 { return p.remaining }

// Bars returns how many candles were stepped.
func (p *Position) Bars() int { return p.bars }

// LastPrice returns the last observed price, or entry before any bar.
func (p *Position) LastPrice() float64 { return p.lastPx }

// LastTimestamp returns the timestamp of the last stepped bar, or the open time.
func (p *Position) LastTimestamp() int64 { return p.lastTs }

// Fills returns exits in the order they happened.
func (p *Position) Fills() []ExitFill { return append([]ExitFill(nil), p.fills...) }

// Excursions returns MFE and MAE as non-negative percentages of entry with
// their offsets from the open time.
func (p *Position) Excursions() (mfe, mae float64, mfeAt, maeAt int64) {
	return p.mfe, p.mae, p.mfeAt, p.maeAt
}

// TrailingLevel returns the current trailing stop and whether it is active.
func (p *Position) TrailingLevel() (float64, bool) { return p.trail, p.trailOn }

// Outcome classifies the closed position.
func (p *Position) Outcome() string {
	if len(p.fills) == 0 {
		return domain.OutcomeTimeout
	}
	tpFilled := false
	for _, f := range p.fills {
		if f.Reason == domain.ExitReasonTakeProfit {
			tpFilled = true
		}
	}
	switch final := p.fills[len(p.fills)-1].Reason; {
	case final == domain.ExitReasonTakeProfit:
		return domain.OutcomeTP
	case tpFilled:
		return domain.OutcomePartialTP
	case final == domain.ExitReasonInitialStop:
		return domain.OutcomeSL
	case final == domain.ExitReasonTrailingStop:
		return domain.OutcomeTrailingSL
	default:
		return domain.OutcomeTimeout
	}
}

// Step advances the position through one candle.
func (p *Position) Step(c domain.Candle) {
	if p.Closed() {
		return
	}
	p.bars++
	ts := c.TimestampMs
	path := Path(c)
	open := path[0]

	// A bar opening beyond a level fills at the open.
	if stop, reason, ok := p.stopLevel(); ok && p.sign*(open-stop) <= 0 {
		p.observe(open, ts)
		p.exit(ts, open, reason)
		return
	}
	for i := range p.levels {
		if !p.levels[i].filled && p.sign*(open-p.levels[i].price) >= 0 {
			p.fillLevel(i, ts, open)
		}
	}
	p.observe(open, ts)
	if p.Closed() {
		return
	}
	p.ratchet()

	for s := 0; s < len(path)-1; s++ {
		if p.walk(path[s], path[s+1], ts) {
			return
		}
		p.observe(path[s+1], ts)
		p.ratchet()
	}
	p.lastPx, p.lastTs = c.Close, ts
}

// Close exits any remaining exposure at price.
func (p *Position) Close(ts int64, price float64, reason string) {
	if p.Closed() {
		return
	}
	p.exit(ts, price, reason)
}

// walk processes levels lying within [from, to] ordered by distance from
// from. Returns true when the position closed inside the segment.
func (p *Position) walk(from, to float64, ts int64) bool {
	lo, hi := math.Min(from, to), math.Max(from, to)
	type hit struct {
		dist   float64
		level  int // -1 for the stop
		price  float64
		reason string
	}
	var hits []hit
	if stop, reason, ok := p.stopLevel(); ok && stop >= lo && stop <= hi {
		hits = append(hits, hit{math.Abs(stop - from), -1, stop, reason})
	}
	for i, l := range p.levels {
		if !l.filled && l.price >= lo && l.price <= hi {
			hits = append(hits, hit{math.Abs(l.price - from), i, l.price, domain.ExitReasonTakeProfit})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	for _, h := range hits {
		p.observe(h.price, ts)
		if h.level < 0 {
			p.exit(ts, h.price, h.reason)
			return true
		}
		p.fillLevel(h.level, ts, h.price)
		if p.Closed() {
			return true
		}
	}
	return false
}

// stopLevel returns the tighter of the initial stop and the trailing stop.
func (p *Position) stopLevel() (float64, string, bool) {
	level, reason, ok := p.stop, domain.ExitReasonInitialStop, p.hasStop
	if p.trailOn && (!ok || p.sign*(p.trail-level) > 0) {
		level, reason, ok = p.trail, domain.ExitReasonTrailingStop, true
	}
	return level, reason, ok
}

func (p *Position) fillLevel(i int, ts int64, price float64) {
	frac := math.Min(p.levels[i].weight, p.remaining)
	p.levels[i].filled = true
	p.remaining -= frac
	if p.remaining <= fractionEpsilon {
		p.remaining = 0
	}
	p.fills = append(p.fills, ExitFill{TimestampMs: ts, Price: price, Fraction: frac, Reason: domain.ExitReasonTakeProfit})
	p.lastPx, p.lastTs = price, ts
}

func (p *Position) exit(ts int64, price float64, reason string) {
	p.fills = append(p.fills, ExitFill{TimestampMs: ts, Price: price, Fraction: p.remaining, Reason: reason})
	p.remaining = 0
	p.lastPx, p.lastTs = price, ts
}

// observe updates excursions and the best favorable price.
func (p *Position) observe(price float64, ts int64) {
	if p.entry <= 0 {
		return
	}
	move := p.sign * (price - p.entry) / p.entry * 100
	if move > p.mfe {
		p.mfe, p.mfeAt = move, ts-p.openedAt
	}
	if -move > p.mae {
		p.mae, p.maeAt = -move, ts-p.openedAt
	}
	if p.sign*(price-p.best) > 0 {
		p.best = price
	}
}

// ratchet activates the trailing stop once favorable movement reaches the
// trailing distance and moves it with the best price, never loosening.
func (p *Position) ratchet() {
	if p.trailDist <= 0 {
		return
	}
	if p.sign*(p.best-p.entry) < p.trailDist {
		return
	}
	level := p.best - p.sign*p.trailDist
	if !p.trailOn || p.sign*(level-p.trail) > 0 {
		p.trail = level
	}
	p.trailOn = true
}
