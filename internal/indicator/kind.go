package indicator

import (
	"fmt"
	"strings"

	"signal-lab/internal/domain"
)

// Kind is a closed set of scalar indicator series.
type Kind int

const (
	KindClose Kind = iota + 1
	KindSMA
	KindEMA
	KindRSI
	KindATR
	KindATRPercent
	KindVWMA
	KindVWAP
	KindMomentum
	KindOBV
	KindADX
	KindPlusDI
	KindMinusDI
	KindMACD
	KindMACDSignal
	KindMACDHistogram
	KindStochK
	KindStochD
	KindBollingerUpper
	KindBollingerLower
)

// Fixed parameters for composite indicators, which ignore Spec.Period except
// where noted.
const (
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	StochSmoothing  = 3 // %D period; Spec.Period is the %K period
	BollingerStdDev = 2.0
)

var kindNames = map[Kind]string{
	KindClose:          "close",
	KindSMA:            "sma",
	KindEMA:            "ema",
	KindRSI:            "rsi",
	KindATR:            "atr",
	KindATRPercent:     "atr_pct",
	KindVWMA:           "vwma",
	KindVWAP:           "vwap",
	KindMomentum:       "momentum",
	KindOBV:            "obv",
	KindADX:            "adx",
	KindPlusDI:         "plus_di",
	KindMinusDI:        "minus_di",
	KindMACD:           "macd",
	KindMACDSignal:     "macd_signal",
	KindMACDHistogram:  "macd_histogram",
	KindStochK:         "stoch_k",
	KindStochD:         "stoch_d",
	KindBollingerUpper: "bb_upper",
	KindBollingerLower: "bb_lower",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind resolves a configuration name to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown indicator kind %q", s)
}

// UnmarshalText lets configuration files name kinds as strings.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MarshalText writes the configuration name of k.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Spec identifies one series: a kind plus its period.
type Spec struct {
	Kind   Kind `yaml:"kind"`
	Period int  `yaml:"period"`
}

func (s Spec) String() string {
	if s.Period == 0 {
		return s.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", s.Kind, s.Period)
}

// Table holds series resolved once for an evaluation pass.
type Table struct {
	series map[Spec][]float64
}

// Series returns the resolved series for spec. Unknown or unresolved specs return nil.
func (t Table) Series(spec Spec) []float64 {
	return t.series[spec]
}

// Last returns the most recent value of spec.
func (t Table) Last(spec Spec) (float64, bool) {
	return Last(t.series[spec])
}

// Prev returns the value of spec one bar before the most recent.
func (t Table) Prev(spec Spec) (float64, bool) {
	return Prev(t.series[spec])
}

// Len returns the number of resolved specs.
func (t Table) Len() int {
	return len(t.series)
}

// Resolve computes every spec over candles. Composite indicators are computed
// once and shared by the kinds derived from them.
func Resolve(candles []domain.Candle, specs []Spec) Table {
	cols := domain.Columns(candles)
	t := Table{series: make(map[Spec][]float64, len(specs))}

	var macd []MACDPoint
	stoch := map[int][]StochasticPoint{}
	adx := map[int][]ADXPoint{}
	bands := map[int][]BollingerPoint{}

	for _, spec := range specs {
		if _, done := t.series[spec]; done {
			continue
		}
		var out []float64
		switch spec.Kind {
		case KindClose:
			out = append([]float64(nil), cols.Close...)
		case KindSMA:
			out = SMA(cols.Close, spec.Period)
		case KindEMA:
			out = EMA(cols.Close, spec.Period)
		case KindRSI:
			out = RSI(cols.Close, spec.Period)
		case KindATR:
			out, _ = ATR(cols.High, cols.Low, cols.Close, spec.Period)
		case KindATRPercent:
			atr, _ := ATR(cols.High, cols.Low, cols.Close, spec.Period)
			out = make([]float64, len(atr))
			offset := len(cols.Close) - len(atr)
			for i, a := range atr {
				if c := cols.Close[i+offset]; c > 0 {
					out[i] = a / c * 100
				}
			}
		case KindVWMA:
			out, _ = VWMA(cols.Close, cols.Volume, spec.Period)
		case KindVWAP:
			out, _ = VWAP(cols.High, cols.Low, cols.Close, cols.Volume, spec.Period)
		case KindMomentum:
			out = Momentum(cols.Close, spec.Period)
		case KindOBV:
			out, _ = OBV(cols.Close, cols.Volume)
		case KindADX, KindPlusDI, KindMinusDI:
			pts, ok := adx[spec.Period]
			if !ok {
				pts, _ = ADX(cols.High, cols.Low, cols.Close, spec.Period)
				adx[spec.Period] = pts
			}
			out = make([]float64, len(pts))
			for i, p := range pts {
				switch spec.Kind {
				case KindADX:
					out[i] = p.ADX
				case KindPlusDI:
					out[i] = p.PlusDI
				default:
					out[i] = p.MinusDI
				}
			}
		case KindMACD, KindMACDSignal, KindMACDHistogram:
			if macd == nil {
				macd = MACD(cols.Close, MACDFast, MACDSlow, MACDSignal)
			}
			out = make([]float64, len(macd))
			for i, p := range macd {
				switch spec.Kind {
				case KindMACD:
					out[i] = p.MACD
				case KindMACDSignal:
					out[i] = p.Signal
				default:
					out[i] = p.Histogram
				}
			}
		case KindStochK, KindStochD:
			pts, ok := stoch[spec.Period]
			if !ok {
				pts, _ = Stochastic(cols.High, cols.Low, cols.Close, spec.Period, StochSmoothing)
				stoch[spec.Period] = pts
			}
			out = make([]float64, len(pts))
			for i, p := range pts {
				if spec.Kind == KindStochK {
					out[i] = p.K
				} else {
					out[i] = p.D
				}
			}
		case KindBollingerUpper, KindBollingerLower:
			pts, ok := bands[spec.Period]
			if !ok {
				pts = Bollinger(cols.Close, spec.Period, BollingerStdDev)
				bands[spec.Period] = pts
			}
			out = make([]float64, len(pts))
			for i, p := range pts {
				if spec.Kind == KindBollingerUpper {
					out[i] = p.Upper
				} else {
					out[i] = p.Lower
				}
			}
		default:
			continue
		}
		t.series[spec] = out
	}
	return t
}
