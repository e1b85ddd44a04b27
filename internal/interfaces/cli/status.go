package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newStatusCommand creates the status command
func newStatusCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session of every role",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render("Hokz Academy sessions"))
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("API %s • sessions kept in %s", rt.Config.API.BaseURL, rt.Config.Session.Backend)))
			fmt.Fprintln(out, renderSessions(sessionRows(rt.Stores, time.Now())))
			return nil
		},
	}
}
