package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal-lab/internal/domain"
	"signal-lab/internal/signal"
	"signal-lab/internal/simulation"
	"signal-lab/internal/storage/memory"
)

const minute = int64(60_000)

// risingSeries grows 1% per bar with a fixed relative range.
func risingSeries(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	prev := 100.0
	for i := range out {
		c := prev * 1.01
		out[i] = domain.Candle{
			TimestampMs: int64(i) * minute,
			Open:        prev,
			High:        c * 1.005,
			Low:         prev * 0.995,
			Close:       c,
			Volume:      1000,
		}
		prev = c
	}
	return out
}

func flatSeries(n int) []domain.Candle {
	out := make([]domain.Candle, n)
	for i := range out {
		out[i] = domain.Candle{TimestampMs: int64(i) * minute, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000}
	}
	return out
}

type recordingSink struct {
	mu   sync.Mutex
	got  []domain.TradeDecision
	fail bool
}

func (s *recordingSink) Publish(_ context.Context, d domain.TradeDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.got = append(s.got, d)
	return nil
}

func newEngine() *signal.Engine {
	return signal.NewEngine(signal.Options{Config: signal.DefaultConfig()})
}

func TestScanner_AsOfPublishesAndSimulates(t *testing.T) {
	trades := memory.NewSimulatedTradeStore()
	pool := simulation.NewPool(simulation.PoolOptions{
		Workers: 2,
		Runner:  simulation.NewRunner(simulation.RunnerOptions{TradeStore: trades}),
	})
	pool.Start(context.Background())

	sink := &recordingSink{}
	s, err := NewScanner(Options{Engine: newEngine(), Sink: sink, Pool: pool})
	require.NoError(t, err)

	data := map[string]Series{
		"BTCUSDT": {Candles: risingSeries(140)},
		"ETHUSDT": {Candles: risingSeries(140)},
		"FLAT":    {Candles: flatSeries(140)},
	}
	sum, err := s.Scan(context.Background(), data, Request{AsOfMs: 119 * minute})
	require.NoError(t, err)
	pool.Stop()

	assert.Equal(t, 3, sum.Symbols)
	assert.Equal(t, 3, sum.Evaluated)
	assert.Equal(t, 2, sum.Directional)
	assert.Equal(t, 2, sum.Published)
	assert.Equal(t, 2, sum.Submitted)
	assert.Equal(t, int64(2), pool.Stats().Completed)
	assert.Equal(t, 2, trades.Len())

	for _, d := range sink.got {
		assert.Equal(t, domain.DirectionBuy, d.Direction())
		assert.Equal(t, 119*minute, d.TimestampMs)
	}
}

func TestScanner_LatestBarHasNoForward(t *testing.T) {
	pool := simulation.NewPool(simulation.PoolOptions{Workers: 1})
	pool.Start(context.Background())
	defer pool.Stop()

	s, err := NewScanner(Options{Engine: newEngine(), Pool: pool})
	require.NoError(t, err)

	sum, err := s.Scan(context.Background(), map[string]Series{"BTCUSDT": {Candles: risingSeries(120)}}, Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Directional)
	assert.Equal(t, 0, sum.Submitted)
}

func TestScanner_WalkRespectsCooldown(t *testing.T) {
	engine := newEngine()
	sink := &recordingSink{}
	s, err := NewScanner(Options{Engine: engine, Sink: sink})
	require.NoError(t, err)

	candles := risingSeries(160)
	sum, err := s.Scan(context.Background(), map[string]Series{"BTCUSDT": {Candles: candles}}, Request{Walk: true})
	require.NoError(t, err)

	assert.Equal(t, len(candles)-engine.MinBars()+1, sum.Evaluated)
	require.NotEmpty(t, sink.got)
	cooldown := engine.Config().Cooldown.Milliseconds()
	for i := 1; i < len(sink.got); i++ {
		gap := sink.got[i].TimestampMs - sink.got[i-1].TimestampMs
		assert.GreaterOrEqual(t, gap, cooldown)
	}
}

func TestScanner_SinkFailureCounted(t *testing.T) {
	s, err := NewScanner(Options{Engine: newEngine(), Sink: &recordingSink{fail: true}})
	require.NoError(t, err)

	sum, err := s.Scan(context.Background(), map[string]Series{"BTCUSDT": {Candles: risingSeries(120)}}, Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.PublishFailed)
	assert.Equal(t, 0, sum.Published)
}

func TestScanner_SaturatedPoolCounted(t *testing.T) {
	pool := simulation.NewPool(simulation.PoolOptions{Workers: 1, QueueSize: 1})
	// not started: the single queue slot fills and the rest are rejected
	defer pool.Stop()

	s, err := NewScanner(Options{Engine: newEngine(), Pool: pool})
	require.NoError(t, err)

	data := map[string]Series{
		"A": {Candles: risingSeries(140)},
		"B": {Candles: risingSeries(140)},
		"C": {Candles: risingSeries(140)},
	}
	sum, err := s.Scan(context.Background(), data, Request{AsOfMs: 119 * minute})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Submitted)
	assert.Equal(t, 2, sum.SubmitFailed)
}

func TestScanner_AsOfBeforeData(t *testing.T) {
	s, err := NewScanner(Options{Engine: newEngine()})
	require.NoError(t, err)

	candles := risingSeries(10)
	for i := range candles {
		candles[i].TimestampMs += 10 * minute
	}
	sum, err := s.Scan(context.Background(), map[string]Series{"X": {Candles: candles}}, Request{AsOfMs: minute})
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Evaluated)
}

func TestScanner_Cancelled(t *testing.T) {
	s, err := NewScanner(Options{Engine: newEngine()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx, map[string]Series{"X": {Candles: risingSeries(140)}}, Request{Walk: true})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScanner_RequiresEngine(t *testing.T) {
	_, err := NewScanner(Options{})
	assert.ErrorIs(t, err, ErrNoEngine)
}

func TestLastIndex(t *testing.T) {
	candles := risingSeries(5)
	assert.Equal(t, 4, lastIndex(candles, 0))
	assert.Equal(t, 2, lastIndex(candles, 2*minute+30*time.Second.Milliseconds()))
	assert.Equal(t, 4, lastIndex(candles, 100*minute))
	assert.Equal(t, -1, lastIndex(nil, 0))
}
