package signal

import (
	"fmt"

	"signal-lab/internal/domain"
	"signal-lab/internal/indicator"
)

// Rule weights. Every rule adds its weight to the buy or sell side; ATR range
// and ADX confirmation add to both.
const (
	WeightEMAAlignment = 20.0
	WeightVWMAVsVWAP   = 15.0
	WeightMACD         = 15.0
	WeightRSIExtreme   = 10.0
	WeightStochastic   = 10.0
	WeightOBVVWMA      = 10.0
	WeightATRRange     = 10.0
	WeightVWMASlope    = 5.0
	WeightADXTrend     = 10.0
	WeightMomentum     = 12.0
	WeightEngulfing    = 15.0

	// MaxScore is the highest score one side can reach.
	MaxScore = WeightEMAAlignment + WeightVWMAVsVWAP + WeightMACD + WeightRSIExtreme +
		WeightStochastic + WeightOBVVWMA + WeightATRRange + WeightVWMASlope +
		WeightADXTrend + WeightMomentum + WeightEngulfing
)

// specSet names every series the scoring rules read.
type specSet struct {
	close, emaFast, emaSlow, rsi, atr, atrPct, vwma, vwap, momentum, obv indicator.Spec
	macd, macdSignal, macdHist, stochK, stochD                            indicator.Spec
}

func newSpecSet(cfg Config) specSet {
	return specSet{
		close:      indicator.Spec{Kind: indicator.KindClose},
		emaFast:    indicator.Spec{Kind: indicator.KindEMA, Period: cfg.EMAFast},
		emaSlow:    indicator.Spec{Kind: indicator.KindEMA, Period: cfg.EMASlow},
		rsi:        indicator.Spec{Kind: indicator.KindRSI, Period: cfg.RSIPeriod},
		atr:        indicator.Spec{Kind: indicator.KindATR, Period: cfg.ATRPeriod},
		atrPct:     indicator.Spec{Kind: indicator.KindATRPercent, Period: cfg.ATRPeriod},
		vwma:       indicator.Spec{Kind: indicator.KindVWMA, Period: cfg.VWMAPeriod},
		vwap:       indicator.Spec{Kind: indicator.KindVWAP, Period: cfg.VWAPPeriod},
		momentum:   indicator.Spec{Kind: indicator.KindMomentum, Period: cfg.MomentumPeriod},
		obv:        indicator.Spec{Kind: indicator.KindOBV},
		macd:       indicator.Spec{Kind: indicator.KindMACD},
		macdSignal: indicator.Spec{Kind: indicator.KindMACDSignal},
		macdHist:   indicator.Spec{Kind: indicator.KindMACDHistogram},
		stochK:     indicator.Spec{Kind: indicator.KindStochK, Period: cfg.StochPeriod},
		stochD:     indicator.Spec{Kind: indicator.KindStochD, Period: cfg.StochPeriod},
	}
}

func (s specSet) all() []indicator.Spec {
	return []indicator.Spec{
		s.close, s.emaFast, s.emaSlow, s.rsi, s.atr, s.atrPct, s.vwma, s.vwap,
		s.momentum, s.obv, s.macd, s.macdSignal, s.macdHist, s.stochK, s.stochD,
	}
}

// minBars returns the history every rule needs to read its current and previous value.
func minBars(cfg Config, trendBars int) int {
	return max(
		trendBars,
		cfg.EMASlow,
		cfg.RSIPeriod+1,
		indicator.MACDSlow+indicator.MACDSignal,
		cfg.StochPeriod+indicator.StochSmoothing,
		cfg.ATRPeriod+1,
		cfg.VWMAPeriod+1,
		cfg.VWAPPeriod,
		cfg.MomentumPeriod+2,
	)
}

type scoreCard struct {
	buy      float64
	sell     float64
	reasons  []string
	snapshot Snapshot
}

func (c *scoreCard) add(side domain.Side, weight float64, format string, args ...any) {
	if side == domain.SideBuy {
		c.buy += weight
	} else {
		c.sell += weight
	}
	c.reasons = append(c.reasons, fmt.Sprintf(format+" (%s +%g)", append(args, side, weight)...))
}

func (c *scoreCard) addBoth(weight float64, format string, args ...any) {
	c.buy += weight
	c.sell += weight
	c.reasons = append(c.reasons, fmt.Sprintf(format+" (both +%g)", append(args, weight)...))
}

// score applies the rule table to the resolved series.
func score(t indicator.Table, s specSet, tc domain.TrendContext, cfg Config) scoreCard {
	var card scoreCard
	last := func(spec indicator.Spec) (float64, bool) { return t.Last(spec) }
	prev := func(spec indicator.Spec) (float64, bool) { return t.Prev(spec) }

	closeNow, okClose := last(s.close)
	emaFast, okFast := last(s.emaFast)
	emaSlow, okSlow := last(s.emaSlow)
	if okClose && okFast && okSlow {
		switch {
		case closeNow > emaFast && emaFast > emaSlow:
			card.add(domain.SideBuy, WeightEMAAlignment, "close > ema%d > ema%d", cfg.EMAFast, cfg.EMASlow)
		case closeNow < emaFast && emaFast < emaSlow:
			card.add(domain.SideSell, WeightEMAAlignment, "close < ema%d < ema%d", cfg.EMAFast, cfg.EMASlow)
		}
	}

	vwma, okVWMA := last(s.vwma)
	vwap, okVWAP := last(s.vwap)
	if okVWMA && okVWAP {
		switch {
		case vwma > vwap:
			card.add(domain.SideBuy, WeightVWMAVsVWAP, "vwma above vwap")
		case vwma < vwap:
			card.add(domain.SideSell, WeightVWMAVsVWAP, "vwma below vwap")
		}
	}

	macd, ok1 := last(s.macd)
	sig, ok2 := last(s.macdSignal)
	hist, ok3 := last(s.macdHist)
	prevHist, ok4 := prev(s.macdHist)
	if ok1 && ok2 && ok3 && ok4 {
		switch {
		case macd > sig && hist > 0 && hist > prevHist:
			card.add(domain.SideBuy, WeightMACD, "macd above signal, histogram rising")
		case macd > sig:
			card.add(domain.SideBuy, WeightMACD/2, "macd above signal")
		case macd < sig && hist < 0 && hist < prevHist:
			card.add(domain.SideSell, WeightMACD, "macd below signal, histogram falling")
		case macd < sig:
			card.add(domain.SideSell, WeightMACD/2, "macd below signal")
		}
	}

	rsi, okRSI := last(s.rsi)
	if okRSI {
		switch {
		case rsi < cfg.RSIOversold:
			card.add(domain.SideBuy, WeightRSIExtreme, "rsi %.1f oversold", rsi)
		case rsi > cfg.RSIOverbought:
			card.add(domain.SideSell, WeightRSIExtreme, "rsi %.1f overbought", rsi)
		}
	}

	k, ok1 := last(s.stochK)
	d, ok2 := last(s.stochD)
	pk, ok3 := prev(s.stochK)
	pd, ok4 := prev(s.stochD)
	if ok1 && ok2 && ok3 && ok4 {
		switch {
		case pk <= pd && k > d && pk < cfg.StochOversold:
			card.add(domain.SideBuy, WeightStochastic, "stochastic bullish cross from oversold")
		case pk >= pd && k < d && pk > cfg.StochOverbought:
			card.add(domain.SideSell, WeightStochastic, "stochastic bearish cross from overbought")
		}
	}

	obv, ok1 := last(s.obv)
	prevOBV, ok2 := prev(s.obv)
	if ok1 && ok2 && okVWMA && okClose {
		switch {
		case obv > prevOBV && closeNow > vwma:
			card.add(domain.SideBuy, WeightOBVVWMA, "obv rising with close above vwma")
		case obv < prevOBV && closeNow < vwma:
			card.add(domain.SideSell, WeightOBVVWMA, "obv falling with close below vwma")
		}
	}

	atrPct, okATR := last(s.atrPct)
	if okATR && atrPct >= cfg.MinATRPct && atrPct <= cfg.MaxATRPct {
		card.addBoth(WeightATRRange, "atr %.2f%% in range", atrPct)
	}

	prevVWMA, ok := prev(s.vwma)
	if ok && okVWMA {
		switch {
		case vwma > prevVWMA:
			card.add(domain.SideBuy, WeightVWMASlope, "vwma rising")
		case vwma < prevVWMA:
			card.add(domain.SideSell, WeightVWMASlope, "vwma falling")
		}
	}

	if tc.IsTrending {
		card.addBoth(WeightADXTrend, "adx %.1f trending", tc.ADX)
	}

	mom, ok1 := last(s.momentum)
	prevMom, ok2 := prev(s.momentum)
	if ok1 && ok2 {
		switch {
		case mom > 0 && mom > prevMom:
			card.add(domain.SideBuy, WeightMomentum, "momentum accelerating up")
		case mom < 0 && mom < prevMom:
			card.add(domain.SideSell, WeightMomentum, "momentum accelerating down")
		}
	}

	switch tc.LastPattern {
	case domain.PatternBullishEngulfing:
		card.add(domain.SideBuy, WeightEngulfing, "bullish engulfing")
	case domain.PatternBearishEngulfing:
		card.add(domain.SideSell, WeightEngulfing, "bearish engulfing")
	}

	card.snapshot = Snapshot{
		Close:     closeNow,
		EMAFast:   emaFast,
		EMASlow:   emaSlow,
		RSI:       rsi,
		ATRPct:    atrPct,
		VWMA:      vwma,
		VWAP:      vwap,
		Momentum:  mom,
		MACDHist:  hist,
		StochK:    k,
		StochD:    d,
		OBVSlope:  obv - prevOBV,
		ADX:       tc.ADX,
		PlusDI:    tc.PlusDI,
		MinusDI:   tc.MinusDI,
		BuyScore:  card.buy,
		SellScore: card.sell,
	}
	return card
}

// decide applies the threshold rule to raw scores under the trend bias.
func decide(bias domain.TrendBias, buy, sell float64, cfg Config) domain.Direction {
	switch {
	case bias == domain.TrendBullish && buy >= cfg.MinScore && buy-sell >= cfg.MinScoreGap:
		return domain.DirectionBuy
	case bias == domain.TrendBearish && sell >= cfg.MinScore && sell-buy >= cfg.MinScoreGap:
		return domain.DirectionSell
	default:
		return domain.DirectionHold
	}
}
