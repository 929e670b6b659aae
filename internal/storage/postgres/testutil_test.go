package postgres

import (
	"context"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"signal-lab/internal/domain"
)

// setupTestDB starts a PostgreSQL container with the schema applied.
// The returned cleanup terminates it.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("signals"),
		postgres.WithUsername("lab"),
		postgres.WithPassword("lab"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, Options{DSN: dsn, MaxConns: 4, ApplicationName: "signal-lab-test"})
	require.NoError(t, err)

	applySchema(t, pool)

	return pool, func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}
}

// applySchema executes the SQL files under migrations/postgres. The
// migrations package depends on this one, so the files are read from disk.
func applySchema(t *testing.T, pool *Pool) {
	t.Helper()
	root := os.DirFS(moduleRoot(t))

	// fs.Glob returns names in lexical order.
	files, err := fs.Glob(root, "internal/storage/migrations/postgres/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, name := range files {
		sql, err := fs.ReadFile(root, name)
		require.NoError(t, err)
		_, err = pool.Exec(context.Background(), string(sql))
		require.NoError(t, err, "apply %s", path.Base(name))
	}
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		require.NotEqual(t, dir, parent, "go.mod not found")
		dir = parent
	}
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}

func sampleTrade(id, symbol string, openedAt int64) *domain.SimulatedTrade {
	return &domain.SimulatedTrade{
		TradeID:    id,
		SignalID:   "sig-" + id,
		Symbol:     symbol,
		Side:       domain.SideBuy,
		EntryPrice: domain.AmountFromFloat(100.06),
		StopLoss:   ptr(domain.AmountFromFloat(96)),
		TPLevels: []domain.PartialTPLevel{
			{Price: domain.AmountFromFloat(104), Weight: 0.5},
			{Price: domain.AmountFromFloat(108), Weight: 0.5},
		},
		Quantity: domain.AmountFromFloat(9.994),
		Fills: []domain.Fill{
			{TimestampMs: openedAt + 60_000, Price: domain.AmountFromFloat(103.94), Fraction: 0.5, Reason: domain.ExitReasonTakeProfit},
			{TimestampMs: openedAt + 120_000, Price: domain.AmountFromFloat(95.94), Fraction: 0.5, Reason: domain.ExitReasonInitialStop},
		},
		OpenedAt:              openedAt,
		ClosedAt:              openedAt + 120_000,
		Outcome:               domain.OutcomePartialTP,
		PnL:                   domain.AmountFromFloat(-2.31),
		RMultiple:             domain.RatioFromFloat(-0.0567),
		Label:                 0,
		MaxFavorableExcursion: domain.RatioFromFloat(4.9),
		MaxAdverseExcursion:   domain.RatioFromFloat(4.06),
		DurationMs:            120_000,
		TimeToMFEMs:           60_000,
		TimeToMAEMs:           120_000,
	}
}
