// Package postgres provides a PostgreSQL adapter for dbscope.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/dbscope/pkg/adapter"
	"github.com/leapstack-labs/dbscope/pkg/core"
)

// Params holds PostgreSQL specific configuration.
type Params struct {
	// Schema to introspect. Empty uses current_schema().
	Schema string `mapstructure:"schema"`
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
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
	return "postgres"
}

// Connect establishes a read-only session to the database named by the
// postgres:// URL in cfg.Path.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	var params Params
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return err
	}

	connCfg, err := buildConnConfig(cfg)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to postgres",
		slog.String("host", connCfg.Host),
		slog.String("database", connCfg.Database))

	db := stdlib.OpenDB(*connCfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	schema := params.Schema
	if schema == "" {
		if err := db.QueryRowContext(ctx, "SELECT current_schema()").Scan(&schema); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to resolve current schema: %w", err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	a.Schema = schema
	return nil
}

// buildConnConfig parses the URL and applies the password when the URL
// carries none.
func buildConnConfig(cfg adapter.Config) (*pgx.ConnConfig, error) {
	connCfg, err := pgx.ParseConfig(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres url: %w", err)
	}
	if cfg.Password != "" && connCfg.Password == "" {
		connCfg.Password = cfg.Password
	}
	if connCfg.RuntimeParams == nil {
		connCfg.RuntimeParams = make(map[string]string)
	}
	connCfg.RuntimeParams["default_transaction_read_only"] = "on"
	return connCfg, nil
}

// ListTables returns base tables of the schema.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	names, err := a.QueryStrings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`, a.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// Columns reads information_schema.columns; primary keys come from pg_index.
func (a *Adapter) Columns(ctx context.Context, table string) ([]core.ColumnInfo, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := a.DB.QueryContext(ctx, `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.column_default,
			EXISTS (
				SELECT 1
				FROM pg_index i
				JOIN pg_attribute att ON att.attrelid = i.indrelid AND att.attnum = ANY(i.indkey)
				WHERE i.indisprimary
				  AND i.indrelid = format('%I.%I', c.table_schema, c.table_name)::regclass
				  AND att.attname = c.column_name
			) AS is_pk
		FROM information_schema.columns c
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position
	`, a.Schema, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]core.ColumnInfo, 0)
	for rows.Next() {
		var col core.ColumnInfo
		var nullable string
		var dflt sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &dflt, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
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
