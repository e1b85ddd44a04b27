package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hokz.academy/cli/internal/infrastructure/logging"
	"hokz.academy/cli/internal/infrastructure/mockapi"
)

// newMockServerCommand creates the mock-server command
func newMockServerCommand(container *CLIContainer) *cobra.Command {
	var (
		addr      string
		accessTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Run a local marketplace API for development",
		Long: `Run a local stand-in for the marketplace API with demo accounts:

  user@hokz.academy / user123
  tutor@hokz.academy / tutor123
  admin@hokz.academy / admin123

Access tokens expire quickly so the refresh flow can be exercised.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := container.Config()
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Mock.Addr
			}
			if !cmd.Flags().Changed("access-ttl") {
				accessTTL = cfg.Mock.AccessTTL
			}

			level := cfg.Log.Level
			if level == "warn" {
				level = "info"
			}
			logger, err := logging.New(logging.Options{Level: level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
			if err != nil {
				return err
			}

			mockConfig := mockapi.DefaultConfig()
			mockConfig.Secret = cfg.Mock.Secret
			mockConfig.AccessTTL = accessTTL
			mockConfig.Logger = logger

			server := mockapi.New(mockConfig)
			return server.Serve(cmd.Context(), addr, func(bound string) {
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Mock API listening on http://"+bound))
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8787", "Listen address")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", time.Minute, "Access token lifetime")

	return cmd
}
