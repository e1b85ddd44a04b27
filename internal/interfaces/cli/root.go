package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// NewRootCommand RootCommand represents the base command when called without any subcommands
func NewRootCommand(container *CLIContainer) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "hokz",
		Short: "Hokz Academy CLI - learner, tutor and admin sessions from the terminal",
		Long: `Hokz Academy CLI signs in to the marketplace as a learner, tutor or admin
and calls the API with whichever sessions are active.

Expired access tokens are refreshed transparently. When the session itself has
expired every role is signed out and the CLI tells you where to sign in again.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfiguration(cmd, container); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return container.Shutdown()
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	if container.In != nil {
		rootCmd.SetIn(container.In)
	}
	if container.Out != nil {
		rootCmd.SetOut(container.Out)
	}
	if container.Err != nil {
		rootCmd.SetErr(container.Err)
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Config file path (default is $HOME/.hokz/config.yaml)")
	rootCmd.PersistentFlags().String("api-url", "", "Marketplace API base URL")
	rootCmd.PersistentFlags().String("session-backend", "", "Where sessions are kept between runs (memory, file, redis)")

	rootCmd.AddCommand(newLoginCommand(container))
	rootCmd.AddCommand(newLogoutCommand(container))
	rootCmd.AddCommand(newStatusCommand(container))
	rootCmd.AddCommand(newGetCommand(container))
	rootCmd.AddCommand(newProfileCommand(container))
	rootCmd.AddCommand(newCoursesCommand(container))
	rootCmd.AddCommand(newCartCommand(container))
	rootCmd.AddCommand(newWishlistCommand(container))
	rootCmd.AddCommand(newMockServerCommand(container))

	return rootCmd
}

// goVersion returns the Go version used to build the binary
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// loadConfiguration loads the config file and applies command line overrides
func loadConfiguration(cmd *cobra.Command, container *CLIContainer) error {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := container.LoadConfig(path)
	if err != nil {
		return err
	}

	// Only explicitly set flags override loaded values
	if cmd.Flags().Changed("api-url") {
		cfg.API.BaseURL, _ = cmd.Flags().GetString("api-url")
	}
	if cmd.Flags().Changed("session-backend") {
		cfg.Session.Backend, _ = cmd.Flags().GetString("session-backend")
	}
	if debugMode, _ := cmd.Flags().GetBool("debug"); debugMode {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	container.config = cfg
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context, container *CLIContainer) {
	rootCmd := NewRootCommand(container)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		reportFailure(rootCmd.ErrOrStderr(), container, err)
	}
	if shutdownErr := container.Shutdown(); shutdownErr != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Warning: %v\n", shutdownErr)
	}
	if err != nil {
		os.Exit(1)
	}
}
