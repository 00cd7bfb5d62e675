// Package adapter provides the database adapter contract used by the dbscope
// backend to introspect and read databases.
//
// This package contains the public contract that all database adapters must implement.
// Concrete adapter implementations are in pkg/adapters/ subdirectories and
// register themselves in init().
package adapter

import (
	"context"

	"github.com/leapstack-labs/dbscope/pkg/core"
)

// Config describes what to connect to.
type Config struct {
	// Path is a database file path or a connection URL.
	Path string
	// Password opens encrypted files or authenticates to servers. May be empty.
	Password string
	// Params holds adapter specific settings, decoded with DecodeParams.
	Params map[string]any
}

// Adapter is a single live connection to a database.
// Adapters never modify the databases they read.
type Adapter interface {
	// Name returns the registry name of the adapter.
	Name() string

	// Connect opens the database described by cfg.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// IsEncrypted reports whether a key was needed to open the database.
	IsEncrypted() bool

	// ListTables returns user table names ordered by name.
	ListTables(ctx context.Context) ([]string, error)

	// Columns returns the columns of table in ordinal order.
	Columns(ctx context.Context, table string) ([]core.ColumnInfo, error)

	// CountRows returns the number of rows in table.
	CountRows(ctx context.Context, table string) (int64, error)

	// SelectRows reads columns of table in the given order.
	// limit <= 0 reads every row.
	SelectRows(ctx context.Context, table string, columns []string, limit int) ([][]core.Value, error)
}
