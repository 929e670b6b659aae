package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- header comment
CREATE TABLE a (x String);

-- second
CREATE TABLE b (y String DEFAULT 'it''s');
`
	stmts, err := splitStatements(sql)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CREATE TABLE a (x String)",
		"CREATE TABLE b (y String DEFAULT 'it''s')",
	}, stmts)

	_, err = splitStatements(`SELECT 'a;b';`)
	assert.ErrorIs(t, err, ErrSemicolonInString)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/signals")
	require.NoError(t, err)
	assert.Equal(t, "signals", db)

	_, err = databaseFromDSN("clickhouse://localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := readDir(PostgresFS, "postgres")
	require.NoError(t, err)
	require.NotEmpty(t, pg)
	assert.Contains(t, pg[0].sql, "simulated_trades")

	ch, err := readDir(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	require.NotEmpty(t, ch)

	stmts, err := splitStatements(ch[0].sql)
	require.NoError(t, err)
	assert.Len(t, stmts, 2)
}
