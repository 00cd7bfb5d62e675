package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/dbscope/pkg/core"
)

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// Close, CountRows and SelectRows implementations.
type BaseSQLAdapter struct {
	DB     *sql.DB
	Cfg    Config
	Logger *slog.Logger
	// Encrypted is set by adapters that needed a key to open the database.
	Encrypted bool
	// Schema qualifies table references when set.
	Schema string
	// Quote quotes an identifier. Nil uses ANSI double quotes.
	Quote func(name string) string
	// RawBytesAreBlobs is set for drivers that return []byte only for
	// binary values, whatever the declared column type.
	RawBytesAreBlobs bool
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		if b.Logger != nil {
			b.Logger.Debug("closing database connection")
		}
		err := b.DB.Close()
		b.DB = nil
		return err
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// IsEncrypted reports whether a key was needed to open the database.
func (b *BaseSQLAdapter) IsEncrypted() bool {
	return b.Encrypted
}

// QuoteIdent quotes name with the adapter's quoting rule.
func (b *BaseSQLAdapter) QuoteIdent(name string) string {
	if b.Quote != nil {
		return b.Quote(name)
	}
	return QuoteDouble(name)
}

// TableRef returns the quoted, schema-qualified reference to table.
func (b *BaseSQLAdapter) TableRef(table string) string {
	if b.Schema != "" {
		return b.QuoteIdent(b.Schema) + "." + b.QuoteIdent(table)
	}
	return b.QuoteIdent(table)
}

// QuoteDouble quotes an identifier with double quotes, doubling embedded quotes.
func QuoteDouble(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteBacktick quotes an identifier with backticks, doubling embedded backticks.
func QuoteBacktick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// CountRows returns the number of rows in table.
func (b *BaseSQLAdapter) CountRows(ctx context.Context, table string) (int64, error) {
	if b.DB == nil {
		return 0, fmt.Errorf("database connection not established")
	}

	query := "SELECT COUNT(*) FROM " + b.TableRef(table) //nolint:gosec // identifier is quoted
	var count int64
	if err := b.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// SelectRows reads the given columns of table in order.
// limit <= 0 reads every row.
func (b *BaseSQLAdapter) SelectRows(ctx context.Context, table string, columns []string, limit int) ([][]core.Value, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	query := b.selectQuery(table, columns, limit)
	rows, err := b.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	typeNames := make([]string, len(types))
	for i, ct := range types {
		typeNames[i] = ct.DatabaseTypeName()
	}

	result := make([][]core.Value, 0)
	raw := make([]any, len(types))
	ptrs := make([]any, len(types))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]core.Value, len(raw))
		for i, v := range raw {
			row[i] = b.scanValue(typeNames[i], v)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func (b *BaseSQLAdapter) selectQuery(table string, columns []string, limit int) string {
	list := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = b.QuoteIdent(c)
		}
		list = strings.Join(quoted, ", ")
	}

	query := "SELECT " + list + " FROM " + b.TableRef(table)
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}
	return query
}

// QueryStrings runs query and collects the first column of every row.
func (b *BaseSQLAdapter) QueryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("database connection not established")
	}

	rows, err := b.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (b *BaseSQLAdapter) scanValue(typeName string, v any) core.Value {
	if raw, ok := v.([]byte); ok && b.RawBytesAreBlobs {
		return core.Blob(raw)
	}
	return ScanValue(typeName, v)
}

// ScanValue converts a value scanned from a column of the given database
// type name into a cell.
func ScanValue(typeName string, v any) core.Value {
	switch x := v.(type) {
	case nil:
		return core.Null()
	case int64:
		return core.Int(x)
	case int32:
		return core.Int(int64(x))
	case int16:
		return core.Int(int64(x))
	case int8:
		return core.Int(int64(x))
	case int:
		return core.Int(int64(x))
	case uint8:
		return core.Int(int64(x))
	case uint16:
		return core.Int(int64(x))
	case uint32:
		return core.Int(int64(x))
	case uint64:
		if x > 1<<63-1 {
			return core.Text(strconv.FormatUint(x, 10))
		}
		return core.Int(int64(x))
	case float64:
		return core.Real(x)
	case float32:
		return core.Real(float64(x))
	case bool:
		if x {
			return core.Int(1)
		}
		return core.Int(0)
	case string:
		return core.Text(x)
	case []byte:
		return bytesValue(typeName, x)
	case time.Time:
		return core.Text(x.Format(time.RFC3339Nano))
	case *big.Int:
		if x.IsInt64() {
			return core.Int(x.Int64())
		}
		return core.Text(x.String())
	case fmt.Stringer:
		return core.Text(x.String())
	default:
		return core.Text(fmt.Sprint(x))
	}
}

// bytesValue decides what raw bytes mean. Binary column types and untyped
// expressions are blobs; some drivers also return text and numbers as bytes.
func bytesValue(typeName string, b []byte) core.Value {
	t := strings.ToUpper(typeName)
	switch {
	case t == "", strings.Contains(t, "BLOB"), strings.Contains(t, "BINARY"), t == "BYTEA", t == "BIT":
		return core.Blob(b)
	case strings.Contains(t, "INT"):
		if i, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			return core.Int(i)
		}
	case t == "FLOAT", t == "DOUBLE", t == "REAL":
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return core.Real(f)
		}
	}
	return core.Text(string(b))
}
