// Package client is the typed dbscope client. It forwards each operation to
// an invoke.Invoker and returns the backend's result unchanged.
package client

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/dbscope/internal/invoke"
	"github.com/leapstack-labs/dbscope/pkg/core"
)

// DefaultRowLimit is the row limit sent by GetTableData when none is given.
const DefaultRowLimit = 100

// Client calls backend commands through an Invoker.
// Errors from the Invoker are returned as-is. Client is safe for concurrent use.
type Client struct {
	invoker invoke.Invoker
	logger  *slog.Logger
}

// New creates a Client.
// If logger is nil, a discard logger is used.
func New(invoker invoke.Invoker, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{invoker: invoker, logger: logger}
}

// TestConnection asks the backend for its status string.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	var status string
	if err := c.invoker.Invoke(ctx, core.CommandTestConnection, nil, &status); err != nil {
		return "", err
	}
	return status, nil
}

// ConnectDatabase opens the database at path on the backend.
// password may be empty for unencrypted databases.
func (c *Client) ConnectDatabase(ctx context.Context, path, password string) (*core.DatabaseInfo, error) {
	c.logger.Info("connecting to database", slog.String("path", path))

	var info core.DatabaseInfo
	args := core.ConnectDatabaseArgs{Path: path, Password: password}
	if err := c.invoker.Invoke(ctx, core.CommandConnectDatabase, args, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetDatabaseTables lists the tables of a connected database.
func (c *Client) GetDatabaseTables(ctx context.Context, dbPath string) ([]core.TableInfo, error) {
	c.logger.Info("getting tables", slog.String("db_path", dbPath))

	var tables []core.TableInfo
	args := core.GetDatabaseTablesArgs{DBPath: dbPath}
	if err := c.invoker.Invoke(ctx, core.CommandGetDatabaseTables, args, &tables); err != nil {
		return nil, err
	}

	c.logger.Info("got tables", slog.String("db_path", dbPath), slog.Any("tables", tables))
	return tables, nil
}

// GetTableData fetches up to limit rows of tableName.
// A limit of zero or less is replaced by DefaultRowLimit.
func (c *Client) GetTableData(ctx context.Context, dbPath, tableName string, limit int) (*core.TableData, error) {
	if limit <= 0 {
		limit = DefaultRowLimit
	}

	c.logger.Info("getting table data",
		slog.String("table", tableName),
		slog.String("db_path", dbPath))

	var data core.TableData
	args := core.GetTableDataArgs{DBPath: dbPath, TableName: tableName, Limit: limit}
	if err := c.invoker.Invoke(ctx, core.CommandGetTableData, args, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// CompareDatabaseSchemas diffs the schemas of two connected databases.
func (c *Client) CompareDatabaseSchemas(ctx context.Context, db1Path, db2Path string) (*core.SchemaComparison, error) {
	c.logger.Info("comparing schemas",
		slog.String("db1_path", db1Path),
		slog.String("db2_path", db2Path))

	var cmp core.SchemaComparison
	args := core.CompareDatabaseSchemasArgs{DB1Path: db1Path, DB2Path: db2Path}
	if err := c.invoker.Invoke(ctx, core.CommandCompareDatabaseSchemas, args, &cmp); err != nil {
		return nil, err
	}
	return &cmp, nil
}
