package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/dbscope/internal/cli/output"
	"github.com/leapstack-labs/dbscope/pkg/core"
)

// NewCompareCommand creates the compare command.
func NewCompareCommand() *cobra.Command {
	var password1, password2 string

	cmd := &cobra.Command{
		Use:   "compare <path1> <path2>",
		Short: "Compare the schemas of two databases",
		Long: `Connect to two databases and show how the second schema differs from the first.

Added tables exist only in the second database, removed tables only in the first.
Modified tables list their added, removed and changed columns.`,
		Example: `  dbscope compare ./old.db ./new.db
  dbscope compare @staging @prod -o json
  dbscope compare ./a.db ./b.db --password secret --password2 other`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			var path1, path2 string
			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				path1, _, err = cc.connectArg(gctx, args[0], password1)
				return err
			})
			g.Go(func() error {
				var err error
				path2, _, err = cc.connectArg(gctx, args[1], password2)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			cmp, err := cc.Client.CompareDatabaseSchemas(cmd.Context(), path1, path2)
			if err != nil {
				return err
			}
			return renderComparison(cc.Renderer, cmp)
		},
	}

	cmd.Flags().StringVar(&password1, "password", "", "Password for the first database")
	cmd.Flags().StringVar(&password2, "password2", "", "Password for the second database")
	return cmd
}

func renderComparison(r *output.Renderer, cmp *core.SchemaComparison) error {
	if ok, err := r.Structured(cmp); ok {
		return err
	}

	styles := r.Styles()
	r.Println(styles.Header.Render(fmt.Sprintf("%s -> %s", cmp.Database1, cmp.Database2)))
	r.Println("")

	if len(cmp.AddedTables) == 0 && len(cmp.RemovedTables) == 0 && len(cmp.ModifiedTables) == 0 {
		r.Success(fmt.Sprintf("Schemas are identical (%d tables)", len(cmp.IdenticalTables)))
		return nil
	}

	for _, name := range cmp.AddedTables {
		r.Println(styles.Added.Render("+ " + name))
	}
	for _, name := range cmp.RemovedTables {
		r.Println(styles.Removed.Render("- " + name))
	}
	for _, diff := range cmp.ModifiedTables {
		r.Println(styles.Modified.Render("~ " + diff.TableName))
		for _, col := range diff.AddedColumns {
			r.Println(styles.Added.Render(fmt.Sprintf("    + %s %s", col.Name, col.DataType)))
		}
		for _, name := range diff.RemovedColumns {
			r.Println(styles.Removed.Render("    - " + name))
		}
		for _, col := range diff.ModifiedColumns {
			r.Println(styles.Modified.Render(fmt.Sprintf("    ~ %s: %s", col.ColumnName, strings.Join(col.Changes, "; "))))
		}
	}

	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("%d added, %d removed, %d modified, %d identical",
		len(cmp.AddedTables), len(cmp.RemovedTables), len(cmp.ModifiedTables), len(cmp.IdenticalTables))))
	return nil
}
