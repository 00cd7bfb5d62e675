package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/dbscope/internal/invoke"
	"github.com/leapstack-labs/dbscope/pkg/core"
)

// StatusMessage is the test_connection reply.
const StatusMessage = "dbscope backend is working!"

// DefaultQueryTimeout bounds a get_table_data call.
const DefaultQueryTimeout = 60 * time.Second

// Options tunes the registered commands.
type Options struct {
	// QueryTimeout bounds get_table_data. Zero uses DefaultQueryTimeout.
	QueryTimeout time.Duration
}

type handlers struct {
	manager *Manager
	opts    Options
	logger  *slog.Logger
}

// Register binds the backend commands to router.
// If logger is nil, a discard logger is used.
func Register(router *invoke.Router, manager *Manager, opts Options, logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}

	h := &handlers{manager: manager, opts: opts, logger: logger}
	router.Handle(core.CommandTestConnection, invoke.Command(h.testConnection))
	router.Handle(core.CommandConnectDatabase, invoke.Command(h.connectDatabase))
	router.Handle(core.CommandGetDatabaseTables, invoke.Command(h.getDatabaseTables))
	router.Handle(core.CommandGetTableData, invoke.Command(h.getTableData))
	router.Handle(core.CommandCompareDatabaseSchemas, invoke.Command(h.compareDatabaseSchemas))
}

func (h *handlers) testConnection(_ context.Context, _ struct{}) (string, error) {
	return StatusMessage, nil
}

func (h *handlers) connectDatabase(ctx context.Context, args core.ConnectDatabaseArgs) (*core.DatabaseInfo, error) {
	info, err := h.manager.Connect(ctx, args.Path, args.Password)
	if err != nil {
		h.logger.Error("connection failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("connection failed: %w", err)
	}

	h.logger.Info("connected",
		slog.String("name", info.Name),
		slog.Int("table_count", info.TableCount),
		slog.Bool("encrypted", info.IsEncrypted))
	return info, nil
}

func (h *handlers) getDatabaseTables(ctx context.Context, args core.GetDatabaseTablesArgs) ([]core.TableInfo, error) {
	tables, err := h.manager.Tables(ctx, args.DBPath)
	if err != nil {
		h.logger.Error("failed to get tables", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	h.logger.Info("listed tables", slog.Int("count", len(tables)))
	return tables, nil
}

func (h *handlers) getTableData(ctx context.Context, args core.GetTableDataArgs) (*core.TableData, error) {
	qctx, cancel := context.WithTimeout(ctx, h.opts.QueryTimeout)
	defer cancel()

	start := time.Now()
	data, err := h.manager.TableData(qctx, args.DBPath, args.TableName, args.Limit)
	if err != nil {
		if errors.Is(qctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			h.logger.Error("table data query timed out",
				slog.String("table", args.TableName),
				slog.Duration("timeout", h.opts.QueryTimeout))
			return nil, fmt.Errorf("query timeout - table '%s' took too long to fetch. Try using a smaller row limit.", args.TableName) //nolint:staticcheck // user-facing sentence
		}
		h.logger.Error("failed to get table data", slog.String("table", args.TableName), slog.String("error", err.Error()))
		return nil, fmt.Errorf("database error: %w", err)
	}

	h.logger.Info("fetched table data",
		slog.String("table", args.TableName),
		slog.Int("rows", len(data.Rows)),
		slog.Int64("total", data.TotalCount),
		slog.Duration("elapsed", time.Since(start)))
	return data, nil
}

func (h *handlers) compareDatabaseSchemas(ctx context.Context, args core.CompareDatabaseSchemasArgs) (*core.SchemaComparison, error) {
	cmp, err := h.manager.CompareSchemas(ctx, args.DB1Path, args.DB2Path)
	if err != nil {
		h.logger.Error("schema comparison failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("schema comparison failed: %w", err)
	}

	h.logger.Info("compared schemas",
		slog.Int("added", len(cmp.AddedTables)),
		slog.Int("removed", len(cmp.RemovedTables)),
		slog.Int("modified", len(cmp.ModifiedTables)),
		slog.Int("identical", len(cmp.IdenticalTables)))
	return cmp, nil
}
