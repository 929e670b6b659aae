package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Fixed-point scales used at persistence and component boundaries.
const (
	AmountScale    = 100_000_000 // prices, PnL, capital
	RatioScale     = 10_000      // R-multiples, percentages, ratios
	amountExponent = 8
	ratioExponent  = 4
)

// Amount is a monetary value scaled by 1e8.
type Amount int64

// Ratio is a dimensionless value scaled by 1e4.
type Ratio int64

// AmountFromFloat converts f to fixed point, rounding half away from zero.
// NaN and infinities convert to zero.
func AmountFromFloat(f float64) Amount {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return AmountFromDecimal(decimal.NewFromFloat(f))
}

// AmountFromDecimal converts d to fixed point, rounding half away from zero.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount(d.Shift(amountExponent).Round(0).IntPart())
}

// Decimal returns the exact decimal value of a.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -amountExponent)
}

// Float returns a as float64.
func (a Amount) Float() float64 {
	return a.Decimal().InexactFloat64()
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(amountExponent)
}

// RatioFromFloat converts f to fixed point, rounding half away from zero.
// NaN and infinities convert to zero.
func RatioFromFloat(f float64) Ratio {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return RatioFromDecimal(decimal.NewFromFloat(f))
}

// RatioFromDecimal converts d to fixed point, rounding half away from zero.
func RatioFromDecimal(d decimal.Decimal) Ratio {
	return Ratio(d.Shift(ratioExponent).Round(0).IntPart())
}

// Decimal returns the exact decimal value of r.
func (r Ratio) Decimal() decimal.Decimal {
	return decimal.New(int64(r), -ratioExponent)
}

// Float returns r as float64.
func (r Ratio) Float() float64 {
	return r.Decimal().InexactFloat64()
}

func (r Ratio) String() string {
	return r.Decimal().StringFixed(ratioExponent)
}
