package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidCandle is returned when a candle or candle series violates OHLC invariants.
var ErrInvalidCandle = errors.New("invalid candle")

// Candle is one OHLCV bar.
type Candle struct {
	TimestampMs int64 // bar open time (ms)
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}

// Bullish reports whether the bar closed at or above its open.
func (c Candle) Bullish() bool {
	return c.Close >= c.Open
}

// TypicalPrice returns (high + low + close) / 3.
func (c Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// TradedValue returns close * volume.
func (c Candle) TradedValue() float64 {
	return c.Close * c.Volume
}

// Validate checks low <= {open, close} <= high and finite, non-negative values.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: non-finite or negative value at %d", ErrInvalidCandle, c.TimestampMs)
		}
	}
	if c.Low > c.High {
		return fmt.Errorf("%w: low %v above high %v at %d", ErrInvalidCandle, c.Low, c.High, c.TimestampMs)
	}
	if c.Open < c.Low || c.Open > c.High || c.Close < c.Low || c.Close > c.High {
		return fmt.Errorf("%w: open/close outside [low, high] at %d", ErrInvalidCandle, c.TimestampMs)
	}
	return nil
}

// ValidateSeries validates every candle and checks timestamps are strictly increasing.
func ValidateSeries(candles []Candle) error {
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		if i > 0 && c.TimestampMs <= candles[i-1].TimestampMs {
			return fmt.Errorf("%w: timestamp %d not after %d", ErrInvalidCandle, c.TimestampMs, candles[i-1].TimestampMs)
		}
	}
	return nil
}

// Series is a column view over a candle slice.
type Series struct {
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Columns splits candles into equal-length column slices.
func Columns(candles []Candle) Series {
	s := Series{
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	for i, c := range candles {
		s.Open[i] = c.Open
		s.High[i] = c.High
		s.Low[i] = c.Low
		s.Close[i] = c.Close
		s.Volume[i] = c.Volume
	}
	return s
}

// ClosedBars returns the higher-timeframe bars that closed at or before ts.
// A bar counts as closed once its successor has opened.
func ClosedBars(htf []Candle, ts int64) []Candle {
	started := sort.Search(len(htf), func(i int) bool { return htf[i].TimestampMs > ts })
	if started <= 1 {
		return nil
	}
	return htf[: started-1 : started-1]
}
