package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sql := `-- archive
CREATE TABLE a (x String) ENGINE = Memory;

-- second
CREATE TABLE b (y String) ENGINE = Memory;
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x String) ENGINE = Memory", stmts[0])
	assert.Equal(t, "CREATE TABLE b (y String) ENGINE = Memory", stmts[1])
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s'; SELECT 1;`))
	assert.ErrorIs(t, validateNoSemicolonInStrings(`SELECT 'a;b'`), errSemicolonInString)
}

func TestDatabaseFromDSN(t *testing.T) {
	db, err := databaseFromDSN("clickhouse://default@localhost:9000/lab")
	require.NoError(t, err)
	assert.Equal(t, "lab", db)

	_, err = databaseFromDSN("clickhouse://default@localhost:9000")
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	pg, err := sqlFiles(PostgresFS, "postgres")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_campaign_reports.sql"}, pg)

	ch, err := sqlFiles(ClickhouseFS, "clickhouse")
	require.NoError(t, err)
	assert.Equal(t, []string{"001_leaderboard_rows.sql"}, ch)

	data, err := ClickhouseFS.ReadFile("clickhouse/" + ch[0])
	require.NoError(t, err)
	require.NoError(t, validateNoSemicolonInStrings(string(data)))
	stmts := splitStatements(string(data))
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "CREATE TABLE IF NOT EXISTS leaderboard_rows")
	assert.Contains(t, stmts[0], "ReplacingMergeTree(archived_at)")
}
