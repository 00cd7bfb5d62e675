package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/dbscope/internal/httpapi"
	"github.com/leapstack-labs/dbscope/internal/rpc"
)

// NewBackendCommand creates the backend command.
func NewBackendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Run the backend over stdio JSON-RPC",
		Long: `Serve backend commands as JSON-RPC 2.0 on stdin/stdout using
Content-Length framing. Logs go to stderr.

This is what the stdio transport spawns; it is rarely run by hand.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			defer cc.CloseStore()

			router, manager := NewBackend(cc.Cfg, cc.Logger, cc.Store)
			defer func() { _ = manager.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return rpc.NewServer(router, cmd.InOrStdin(), cmd.OutOrStdout(), cc.Logger).Serve(ctx)
		},
	}
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the backend over HTTP",
		Long: `Serve backend commands over HTTP until interrupted.

Endpoints:
  POST /invoke/{command}   run a command with the JSON body as arguments
  GET  /commands           list command names
  GET  /healthz            liveness check`,
		Example: `  dbscope serve
  dbscope serve --addr 0.0.0.0:9000
  dbscope ping --transport http --remote http://127.0.0.1:8765`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			defer cc.CloseStore()

			if !cmd.Flags().Changed("addr") {
				addr = cc.Cfg.HTTP.Addr
			}

			router, manager := NewBackend(cc.Cfg, cc.Logger, cc.Store)
			defer func() { _ = manager.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return httpapi.NewServer(router, addr, cc.Logger).Serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", httpapi.DefaultAddr, "Listen address")
	return cmd
}
