// Package sqlite provides a read-only SQLite adapter for dbscope, including
// SQLCipher key negotiation for encrypted files.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/dbscope/pkg/adapter"
	"github.com/leapstack-labs/dbscope/pkg/core"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Driver names used by the adapter.
const (
	DriverSQLite    = "sqlite"
	DriverSQLCipher = "sqlcipher"
)

// Params holds SQLite specific configuration.
type Params struct {
	// Driver opens files that are readable without a key.
	Driver string `mapstructure:"driver"`
	// CipherDriver opens SQLCipher encrypted files. It must understand
	// PRAGMA key.
	CipherDriver string `mapstructure:"cipher_driver"`
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		// A blob may sit in a column of any declared type; the drivers
		// only hand out []byte for the BLOB storage class.
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, RawBytesAreBlobs: true},
	}
}

// Name returns the registry name of the adapter.
func (a *Adapter) Name() string {
	return "sqlite"
}

// Connect opens an existing SQLite file read-only.
//
// If the file cannot be read without a key it is treated as SQLCipher
// encrypted and cfg.Password is tried in several PRAGMA key spellings.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params := Params{Driver: DriverSQLite, CipherDriver: DriverSQLCipher}
	if err := adapter.DecodeParams(cfg.Params, &params); err != nil {
		return err
	}

	uri, err := readOnlyURI(cfg.Path)
	if err != nil {
		return err
	}

	drv, err := lookupDriver(params.Driver)
	if err != nil {
		return err
	}

	a.Logger.Debug("opening sqlite database", slog.String("path", cfg.Path))

	db := sql.OpenDB(&keyedConnector{driver: drv, dsn: uri})
	probeErr := probe(ctx, db)
	if probeErr == nil {
		a.Logger.Debug("database detected as unencrypted sqlite")
		a.DB = db
		a.Cfg = cfg
		return nil
	}
	_ = db.Close()

	a.Logger.Info("database is not readable without a key, treating it as encrypted",
		slog.String("path", cfg.Path), slog.String("error", probeErr.Error()))

	if cfg.Password == "" {
		return fmt.Errorf("failed to open encrypted database: password required (%v)", probeErr)
	}

	cipher, err := lookupDriver(params.CipherDriver)
	if err != nil {
		return fmt.Errorf("failed to open encrypted database: %w", err)
	}

	masked := keyPragmas("****")
	lastErr := probeErr
	for i, pragma := range keyPragmas(cfg.Password) {
		a.Logger.Debug("trying sqlcipher key format", slog.String("pragma", masked[i]))

		db := sql.OpenDB(&keyedConnector{driver: cipher, dsn: uri, init: pragma})
		if err := probe(ctx, db); err != nil {
			_ = db.Close()
			lastErr = err
			continue
		}

		a.Logger.Info("sqlcipher key accepted", slog.String("pragma", masked[i]))
		a.DB = db
		a.Cfg = cfg
		a.Encrypted = true
		return nil
	}

	return fmt.Errorf("failed to open encrypted database: %v", lastErr)
}

// ListTables returns user tables, skipping SQLite's internal sqlite_* tables.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	names, err := a.QueryStrings(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return names, nil
}

// Columns reads PRAGMA table_info. An unknown table has no columns.
func (a *Adapter) Columns(ctx context.Context, table string) ([]core.ColumnInfo, error) {
	if a.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := a.DB.QueryContext(ctx, "PRAGMA table_info("+a.QuoteIdent(table)+")")
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	columns := make([]core.ColumnInfo, 0)
	for rows.Next() {
		var (
			cid     int
			col     core.ColumnInfo
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.DataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		col.Nullable = notNull == 0
		col.PrimaryKey = pk > 0
		if dflt.Valid {
			col.DefaultValue = core.StrPtr(dflt.String)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return columns, nil
}

func probe(ctx context.Context, db *sql.DB) error {
	var n int64
	return db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n)
}

// keyPragmas returns the PRAGMA key spellings tried in order.
func keyPragmas(password string) []string {
	single := strings.ReplaceAll(password, "'", "''")
	double := strings.ReplaceAll(password, `"`, `""`)
	return []string{
		fmt.Sprintf("PRAGMA key = '%s'", single),
		fmt.Sprintf(`PRAGMA key = "%s"`, double),
		fmt.Sprintf("PRAGMA key = %s", password),
		fmt.Sprintf("PRAGMA key='%s'", single),
	}
}

// readOnlyURI turns a file path into a read-only SQLite URI.
// The file must already exist; SQLite would otherwise create it.
func readOnlyURI(path string) (string, error) {
	if path == "" || path == ":memory:" || strings.Contains(path, "mode=memory") {
		return "", fmt.Errorf("in-memory SQLite databases are not supported")
	}

	file := path
	if strings.HasPrefix(file, "file:") {
		file = strings.TrimPrefix(file, "file:")
		if idx := strings.IndexByte(file, '?'); idx >= 0 {
			file = file[:idx]
		}
	}

	info, err := os.Stat(file)
	if err != nil {
		return "", fmt.Errorf("failed to open database file %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("failed to open database file %s: is a directory", path)
	}

	escaped := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23").Replace(file)
	return "file:" + escaped + "?mode=ro", nil
}

func lookupDriver(name string) (driver.Driver, error) {
	db, err := sql.Open(name, "")
	if err != nil {
		return nil, fmt.Errorf("sqlite driver %q is not available: %w", name, err)
	}
	defer func() { _ = db.Close() }()
	return db.Driver(), nil
}

// keyedConnector opens driver connections and runs init on each one, so a
// key set with PRAGMA survives connection pool churn.
type keyedConnector struct {
	driver driver.Driver
	dsn    string
	init   string
}

func (c *keyedConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.driver.Open(c.dsn)
	if err != nil {
		return nil, err
	}
	if c.init == "" {
		return conn, nil
	}

	if err := execInit(ctx, conn, c.init); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *keyedConnector) Driver() driver.Driver {
	return c.driver
}

func execInit(ctx context.Context, conn driver.Conn, query string) error {
	if ex, ok := conn.(driver.ExecerContext); ok {
		_, err := ex.ExecContext(ctx, query, nil)
		return err
	}

	stmt, err := conn.Prepare(query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	//nolint:staticcheck // fallback for drivers without ExecerContext
	_, err = stmt.Exec(nil)
	if errors.Is(err, driver.ErrSkip) {
		return nil
	}
	return err
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
