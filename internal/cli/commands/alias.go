package commands

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewAliasCommand creates the alias command group.
func NewAliasCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage database aliases",
		Long: `Aliases are short names for database paths, stored in the state database.
Any command taking a path also accepts @alias.`,
	}

	cmd.AddCommand(newAliasSetCommand(), newAliasRemoveCommand(), newAliasListCommand())
	return cmd
}

func newAliasSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "set <alias> <path>",
		Short:   "Assign an alias to a database path",
		Example: `  dbscope alias set prod postgres://app@db.internal/shop`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			defer cc.CloseStore()

			store, err := cc.RequireStore()
			if err != nil {
				return err
			}
			path, err := absDBPath(args[1])
			if err != nil {
				return err
			}
			if err := store.SetAlias(cmd.Context(), path, args[0]); err != nil {
				return err
			}
			cc.Renderer.Success("@" + args[0] + " -> " + path)
			return nil
		},
	}
}

func newAliasRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <alias>",
		Aliases: []string{"remove"},
		Short:   "Remove an alias",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			defer cc.CloseStore()

			alias := args[0]
			if alias != "" && alias[0] != '@' {
				alias = "@" + alias
			}
			path, err := cc.ResolvePath(cmd.Context(), alias)
			if err != nil {
				return err
			}
			if err := cc.Store.DeleteAlias(cmd.Context(), path); err != nil {
				return err
			}
			cc.Renderer.Success("removed " + alias)
			return nil
		},
	}
}

func newAliasListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List aliases",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			defer cc.CloseStore()

			store, err := cc.RequireStore()
			if err != nil {
				return err
			}
			aliases, err := store.ListAliases(cmd.Context())
			if err != nil {
				return err
			}

			r := cc.Renderer
			if ok, err := r.Structured(aliases); ok {
				return err
			}
			if len(aliases) == 0 {
				r.Println("(0 aliases)")
				return nil
			}
			rows := make([][]string, len(aliases))
			for i, a := range aliases {
				rows[i] = []string{"@" + a.Alias, a.Path, a.UpdatedAt.Local().Format(time.DateTime)}
			}
			r.Table([]string{"alias", "path", "updated"}, rows)
			return nil
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent successful connections",
		Long:  `List the connections recorded by the local backend, newest first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			defer cc.CloseStore()

			store, err := cc.RequireStore()
			if err != nil {
				return err
			}
			conns, err := store.RecentConnections(cmd.Context(), limit)
			if err != nil {
				return err
			}

			r := cc.Renderer
			if ok, err := r.Structured(conns); ok {
				return err
			}
			if len(conns) == 0 {
				r.Println("(0 connections)")
				return nil
			}
			rows := make([][]string, len(conns))
			for i, c := range conns {
				rows[i] = []string{c.ConnectedAt.Local().Format(time.DateTime), c.Adapter, c.Path, strconv.Itoa(c.TableCount)}
			}
			r.Table([]string{"connected", "adapter", "path", "tables"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of connections to show")
	return cmd
}
