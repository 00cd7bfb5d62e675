package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbscope/internal/client"
	"github.com/leapstack-labs/dbscope/internal/invoke"
	"github.com/leapstack-labs/dbscope/internal/testutil"
	"github.com/leapstack-labs/dbscope/pkg/core"
)

func newTestClient(t *testing.T, opts Options) (*client.Client, *invoke.Router) {
	t.Helper()
	logger := testutil.NewTestLogger(t)
	router := invoke.NewRouter(logger)
	Register(router, newTestManager(t, ManagerConfig{}), opts, logger)
	return client.New(invoke.NewLocal(router), logger), router
}

func TestRegister_Commands(t *testing.T) {
	_, router := newTestClient(t, Options{})
	assert.ElementsMatch(t, core.Commands(), router.Commands())
}

func TestCommands_TestConnection(t *testing.T) {
	c, _ := newTestClient(t, Options{})

	status, err := c.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusMessage, status)
}

func TestCommands_EndToEnd(t *testing.T) {
	ctx := context.Background()
	path := testutil.CreateSQLiteDB(t, "shop.db", testutil.UsersSchema...)
	c, _ := newTestClient(t, Options{})

	info, err := c.ConnectDatabase(ctx, path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, info.TableCount)
	assert.True(t, info.IsConnected)

	tables, err := c.GetDatabaseTables(ctx, path)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "users", tables[1].Name)

	// limit 0 becomes the client default
	data, err := c.GetTableData(ctx, path, "users", 0)
	require.NoError(t, err)
	assert.Len(t, data.Rows, 3)
	assert.Equal(t, int64(3), data.TotalCount)
	assert.Equal(t, "Ann", data.Rows[0][2].String())
	score, ok := data.Rows[0][3].Float64()
	require.True(t, ok)
	assert.InDelta(t, 1.5, score, 0.0001)

	cmp, err := c.CompareDatabaseSchemas(ctx, path, path)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, cmp.IdenticalTables)
	assert.Empty(t, cmp.ModifiedTables)
}

func TestCommands_TableData_CellKinds(t *testing.T) {
	ctx := context.Background()
	path := testutil.CreateSQLiteDB(t, "cells.db",
		`CREATE TABLE t (id INTEGER, note TEXT, n INTEGER, r REAL)`,
		`INSERT INTO t VALUES (1, x'00ff10', x'0102', 1.0)`,
	)
	c, _ := newTestClient(t, Options{})

	_, err := c.ConnectDatabase(ctx, path, "")
	require.NoError(t, err)
	data, err := c.GetTableData(ctx, path, "t", 0)
	require.NoError(t, err)
	require.Len(t, data.Rows, 1)

	row := data.Rows[0]
	assert.Equal(t, core.Int(1), row[0])
	assert.Equal(t, core.Text("<BLOB 3 bytes>"), row[1], "blob stored in a TEXT column")
	assert.Equal(t, core.Text("<BLOB 2 bytes>"), row[2], "blob stored in an INTEGER column")
	assert.Equal(t, core.KindReal, row[3].Kind(), "integral REAL survives the JSON hop")
	f, ok := row[3].Float64()
	require.True(t, ok)
	assert.InDelta(t, 1.0, f, 0)
}

func TestCommands_ErrorMessages(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t, Options{})

	_, err := c.ConnectDatabase(ctx, "/nonexistent/dir/missing.db", "")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "connection failed: "), err.Error())
	assert.True(t, invoke.IsCode(err, invoke.CodeBackend))

	_, err = c.GetDatabaseTables(ctx, "other.db")
	require.Error(t, err)
	assert.Equal(t, "failed to get tables: database not connected: other.db", err.Error())

	_, err = c.GetTableData(ctx, "other.db", "users", 5)
	require.Error(t, err)
	assert.Equal(t, "database error: database not connected: other.db", err.Error())

	_, err = c.CompareDatabaseSchemas(ctx, "a.db", "b.db")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "schema comparison failed: "), err.Error())
}

func TestCommands_TableDataTimeout(t *testing.T) {
	ctx := context.Background()
	path := testutil.CreateSQLiteDB(t, "shop.db", testutil.UsersSchema...)
	c, _ := newTestClient(t, Options{QueryTimeout: time.Nanosecond})

	_, err := c.ConnectDatabase(ctx, path, "")
	require.NoError(t, err)

	_, err = c.GetTableData(ctx, path, "users", 10)
	require.Error(t, err)
	assert.Equal(t,
		"query timeout - table 'users' took too long to fetch. Try using a smaller row limit.",
		err.Error())
}

func TestCommands_BadArgs(t *testing.T) {
	_, router := newTestClient(t, Options{})

	_, err := router.Dispatch(context.Background(), core.CommandGetTableData, []byte(`{"limit":"ten"}`))
	require.Error(t, err)
	assert.True(t, invoke.IsCode(err, invoke.CodeBadArgs))
}
