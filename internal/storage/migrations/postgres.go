package migrations

import (
	"context"
	"fmt"

	"signal-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies all embedded SQL files in lexical order.
// Migrations are idempotent (IF NOT EXISTS), so reruns are safe.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := readDir(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := pool.Exec(ctx, f.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", f.name, err)
		}
	}
	return nil
}
