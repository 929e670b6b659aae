// Package marketdata loads OHLCV candles from CSV files.
//
// Expected columns: timestamp, open, high, low, close, volume. A header row is
// optional; when present, columns are matched by name in any order. Timestamps
// may be unix milliseconds, unix seconds or RFC 3339.
package marketdata

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"signal-lab/internal/domain"
)

// ErrMalformed is returned for rows that cannot be parsed.
var ErrMalformed = errors.New("malformed candle csv")

// unix seconds below this are treated as seconds, not milliseconds
const secondsCutoff = 100_000_000_000

var columnAliases = map[string]int{
	"timestamp":    0,
	"timestamp_ms": 0,
	"time":         0,
	"open_time":    0,
	"open":         1,
	"high":         2,
	"low":          3,
	"close":        4,
	"volume":       5,
}

// ReadCandles parses candles from r, sorts them by timestamp and validates the series.
func ReadCandles(r io.Reader) ([]domain.Candle, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	cols := []int{0, 1, 2, 3, 4, 5}
	var candles []domain.Candle
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		if line == 1 {
			rec[0] = strings.TrimPrefix(rec[0], "\ufeff")
			if mapped, ok := headerColumns(rec); ok {
				cols = mapped
				continue
			}
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		c, err := parseRow(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		candles = append(candles, c)
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].TimestampMs < candles[j].TimestampMs
	})
	if err := domain.ValidateSeries(candles); err != nil {
		return nil, err
	}
	return candles, nil
}

// LoadCandles reads a CSV file.
func LoadCandles(path string) ([]domain.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open candles: %w", err)
	}
	defer f.Close()

	candles, err := ReadCandles(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return candles, nil
}

// LoadDir reads every <SYMBOL>.csv in dir, keyed by symbol.
func LoadDir(dir string) (map[string][]domain.Candle, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	out := make(map[string][]domain.Candle, len(paths))
	for _, p := range paths {
		candles, err := LoadCandles(p)
		if err != nil {
			return nil, err
		}
		out[SymbolFromPath(p)] = candles
	}
	return out, nil
}

// SymbolFromPath returns the upper-cased file name without extension.
func SymbolFromPath(path string) string {
	base := filepath.Base(path)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

func headerColumns(rec []string) ([]int, bool) {
	cols := []int{-1, -1, -1, -1, -1, -1}
	found := 0
	for i, name := range rec {
		if idx, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]; ok && cols[idx] < 0 {
			cols[idx] = i
			found++
		}
	}
	if found == 0 {
		return nil, false
	}
	for _, c := range cols {
		if c < 0 {
			return nil, false
		}
	}
	return cols, true
}

func parseRow(rec []string, cols []int) (domain.Candle, error) {
	field := func(i int) (string, error) {
		if cols[i] >= len(rec) {
			return "", fmt.Errorf("expected %d fields, got %d", cols[i]+1, len(rec))
		}
		return strings.TrimSpace(rec[cols[i]]), nil
	}

	ts, err := field(0)
	if err != nil {
		return domain.Candle{}, err
	}
	ms, err := parseTimestamp(ts)
	if err != nil {
		return domain.Candle{}, err
	}

	var vals [5]float64
	for i := range vals {
		s, err := field(i + 1)
		if err != nil {
			return domain.Candle{}, err
		}
		if vals[i], err = strconv.ParseFloat(s, 64); err != nil {
			return domain.Candle{}, fmt.Errorf("parse %q: %w", s, err)
		}
	}
	return domain.Candle{
		TimestampMs: ms,
		Open:        vals[0],
		High:        vals[1],
		Low:         vals[2],
		Close:       vals[3],
		Volume:      vals[4],
	}, nil
}

func parseTimestamp(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < secondsCutoff {
			return n * 1000, nil
		}
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: not unix or RFC 3339", s)
	}
	return t.UnixMilli(), nil
}
