// Package duckdb provides a read-only DuckDB adapter for dbscope.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"github.com/leapstack-labs/dbscope/pkg/adapter"
	"github.com/leapstack-labs/dbscope/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Settings are passed to DuckDB as config options (e.g. threads, memory_limit).
	Settings map[string]string `mapstructure:"settings"`
}

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Name returns the registry name of the adapter.
func (a *Adapter) Name() string {
	return "duckdb"
}

// Connect opens an existing DuckDB file in read-only mode.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Path); err != nil {
		return fmt.Errorf("failed to open database file %s: %w", cfg.Path, err)
	}

	dsn := buildDSN(cfg.Path, params)
	a.Logger.Debug("opening duckdb database", slog.String("path", cfg.Path))

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

func buildDSN(path string, params Params) string {
	q := url.Values{}
	q.Set("access_mode", "READ_ONLY")
	for k, v := range params.Settings {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}

// ListTables returns base tables of the current schema.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	names, err := a.QueryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// Columns reads information_schema.columns and marks primary key columns
// from duckdb_constraints().
func (a *Adapter) Columns(ctx context.Context, table string) ([]core.ColumnInfo, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	pk, err := a.QueryStrings(ctx, `
		SELECT unnest(constraint_column_names)
		FROM duckdb_constraints()
		WHERE schema_name = current_schema() AND table_name = ? AND constraint_type = 'PRIMARY KEY'
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query primary key of %s: %w", table, err)
	}

	rows, err := a.DB.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable, column_default
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ?
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]core.ColumnInfo, 0)
	for rows.Next() {
		var col core.ColumnInfo
		var nullable string
		var dflt sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &dflt); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		col.PrimaryKey = slices.Contains(pk, col.Name)
		if dflt.Valid {
			col.DefaultValue = core.StrPtr(dflt.String)
		}
		columns = append(columns, col)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
