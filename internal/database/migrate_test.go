package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	script := `
-- users
CREATE TABLE a (
    id INT
);

CREATE TABLE b (id INT);
INSERT INTO b VALUES (1)
`
	stmts := splitStatements(script)
	require.Len(t, stmts, 3)
	require.True(t, strings.HasPrefix(stmts[0], "CREATE TABLE a ("))
	require.False(t, strings.HasSuffix(stmts[1], ";"))
	require.Equal(t, "INSERT INTO b VALUES (1)", stmts[2])
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	content, err := migrationFiles.ReadFile("migrations/0001_init.up.sql")
	require.NoError(t, err)

	stmts := splitStatements(string(content))
	require.Len(t, stmts, 5)
	for _, s := range stmts {
		require.True(t, strings.HasPrefix(s, "CREATE TABLE IF NOT EXISTS"), s)
	}
}
