package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbscope/internal/cli/output"
	"github.com/leapstack-labs/dbscope/pkg/core"
)

// connectArg resolves arg and connects it, returning the resolved path.
func (cc *CommandContext) connectArg(ctx context.Context, arg, password string) (string, *core.DatabaseInfo, error) {
	path, err := cc.ResolvePath(ctx, arg)
	if err != nil {
		return "", nil, err
	}
	info, err := cc.Client.ConnectDatabase(ctx, path, password)
	if err != nil {
		return "", nil, err
	}
	return path, info, nil
}

// NewConnectCommand creates the connect command.
func NewConnectCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "connect <path|url|@alias>",
		Short: "Connect to a database and show its summary",
		Long: `Open a database on the backend and print what was found.

The adapter is picked from the argument: postgres:// and mysql:// URLs,
.duckdb files, and SQLite files otherwise.`,
		Example: `  dbscope connect ./app.db
  dbscope connect ./secret.db --password hunter2
  dbscope connect postgres://app@localhost/shop
  dbscope connect @prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			_, info, err := cc.connectArg(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			return renderDatabaseInfo(cc.Renderer, info)
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for encrypted databases")
	return cmd
}

func renderDatabaseInfo(r *output.Renderer, info *core.DatabaseInfo) error {
	if ok, err := r.Structured(info); ok {
		return err
	}

	alias := "-"
	if info.Alias != nil {
		alias = *info.Alias
	}
	r.Table([]string{"property", "value"}, [][]string{
		{"name", info.Name},
		{"path", info.Path},
		{"adapter", info.Adapter},
		{"tables", strconv.Itoa(info.TableCount)},
		{"connected", strconv.FormatBool(info.IsConnected)},
		{"encrypted", strconv.FormatBool(info.IsEncrypted)},
		{"alias", alias},
	})
	return nil
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var (
		password    string
		showColumns bool
	)

	cmd := &cobra.Command{
		Use:   "tables <path|url|@alias>",
		Short: "List the tables of a database",
		Long:  `Connect to a database and list its user tables with row and column counts.`,
		Example: `  dbscope tables ./app.db
  dbscope tables ./app.db --columns
  dbscope tables @prod -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			path, _, err := cc.connectArg(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			tables, err := cc.Client.GetDatabaseTables(cmd.Context(), path)
			if err != nil {
				return err
			}
			return renderTables(cc.Renderer, tables, showColumns)
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for encrypted databases")
	cmd.Flags().BoolVarP(&showColumns, "columns", "c", false, "Show the columns of each table")
	return cmd
}

func renderTables(r *output.Renderer, tables []core.TableInfo, showColumns bool) error {
	if ok, err := r.Structured(tables); ok {
		return err
	}

	if len(tables) == 0 {
		r.Println("(0 tables)")
		return nil
	}

	rows := make([][]string, len(tables))
	for i, t := range tables {
		rows[i] = []string{t.Name, strconv.FormatInt(t.RowCount, 10), strconv.Itoa(len(t.Columns))}
	}
	r.Table([]string{"table", "rows", "columns"}, rows)
	r.Printf("(%d tables)\n", len(tables))

	if !showColumns {
		return nil
	}
	for _, t := range tables {
		r.Println("")
		r.Println(r.Styles().Header.Render(t.Name))
		renderColumns(r, t.Columns)
	}
	return nil
}

func renderColumns(r *output.Renderer, columns []core.ColumnInfo) {
	rows := make([][]string, len(columns))
	for i, c := range columns {
		def := "NULL"
		if c.DefaultValue != nil {
			def = *c.DefaultValue
		}
		rows[i] = []string{c.Name, c.DataType, yesNo(c.Nullable), yesNo(c.PrimaryKey), def}
	}
	r.Table([]string{"column", "type", "nullable", "pk", "default"}, rows)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// NewDataCommand creates the data command.
func NewDataCommand() *cobra.Command {
	var (
		password string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "data <path|url|@alias> <table>",
		Short: "Show rows of a table",
		Long: `Connect to a database and print the first rows of a table.

Without --limit (or with a limit of 0) the backend default of 100 rows applies.`,
		Example: `  dbscope data ./app.db users
  dbscope data ./app.db users --limit 10
  dbscope data @prod orders -o yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			path, _, err := cc.connectArg(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			data, err := cc.Client.GetTableData(cmd.Context(), path, args[1], limit)
			if err != nil {
				return err
			}
			return renderTableData(cc.Renderer, data)
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password for encrypted databases")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of rows (0 uses the default of 100)")
	return cmd
}

func renderTableData(r *output.Renderer, data *core.TableData) error {
	if ok, err := r.Structured(data); ok {
		return err
	}

	if len(data.Rows) == 0 {
		r.Println("(0 rows)")
		return nil
	}

	rows := make([][]string, len(data.Rows))
	for i, row := range data.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		rows[i] = cells
	}
	r.Table(data.Columns, rows)
	r.Println(r.Styles().Muted.Render(fmt.Sprintf("(showing %d of %d rows)", len(data.Rows), data.TotalCount)))
	return nil
}
