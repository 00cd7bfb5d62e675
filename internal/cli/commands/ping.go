package commands

import (
	"github.com/spf13/cobra"
)

// NewPingCommand creates the ping command.
func NewPingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend is reachable",
		Long: `Send test_connection to the backend on the configured transport and
print its status message.`,
		Example: `  dbscope ping
  dbscope ping --transport http --remote http://127.0.0.1:8765`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			status, err := cc.Client.TestConnection(cmd.Context())
			if err != nil {
				return err
			}

			if ok, err := cc.Renderer.Structured(map[string]string{"status": status}); ok {
				return err
			}
			cc.Renderer.Success(status)
			return nil
		},
	}
}
