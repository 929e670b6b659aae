// Package indicator provides pure technical indicators over price and volume arrays.
//
// Every series is aligned to the tail of its input: the last output value belongs
// to the last input bar. Inputs shorter than the warm-up produce an empty series.
package indicator

import (
	"errors"
	"math"
)

// ErrLengthMismatch is returned when multi-array inputs differ in length.
var ErrLengthMismatch = errors.New("indicator: input length mismatch")

func sameLength(first []float64, rest ...[]float64) error {
	for _, r := range rest {
		if len(r) != len(first) {
			return ErrLengthMismatch
		}
	}
	return nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FillForward replaces NaN and infinite values with the nearest valid prior value.
// Leading invalid values take the first valid value; an all-invalid series becomes zeros.
// The slice is modified in place and returned.
func FillForward(values []float64) []float64 {
	first := -1
	for i, v := range values {
		if valid(v) {
			first = i
			break
		}
	}
	if first < 0 {
		for i := range values {
			values[i] = 0
		}
		return values
	}
	last := values[first]
	for i, v := range values {
		if valid(v) {
			last = v
			continue
		}
		values[i] = last
	}
	return values
}

// Last returns the final value of a series.
func Last(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	return values[len(values)-1], true
}

// Prev returns the second to last value of a series.
func Prev(values []float64) (float64, bool) {
	if len(values) < 2 {
		return 0, false
	}
	return values[len(values)-2], true
}
