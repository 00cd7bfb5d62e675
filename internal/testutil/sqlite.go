package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// CreateSQLiteDB creates a SQLite database named name in a fresh temp dir,
// runs stmts against it, and returns its path.
func CreateSQLiteDB(t testing.TB, name string, stmts ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	// Force file creation even without statements.
	_, err = db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)

	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "fixture statement: %s", stmt)
	}
	return path
}

// UsersSchema is a small fixture schema shared across packages.
var UsersSchema = []string{
	`CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT DEFAULT 'anon',
		score REAL,
		avatar BLOB
	)`,
	`CREATE TABLE orders (id INTEGER PRIMARY KEY, user_id INTEGER NOT NULL, total REAL)`,
	`INSERT INTO users (id, email, name, score, avatar) VALUES
		(1, 'a@example.com', 'Ann', 1.5, x'010203'),
		(2, 'b@example.com', NULL, NULL, NULL),
		(3, 'c@example.com', 'Cy', 3, NULL)`,
	`INSERT INTO orders (id, user_id, total) VALUES (1, 1, 9.99)`,
}
