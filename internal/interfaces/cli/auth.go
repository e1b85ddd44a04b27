package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hokz.academy/cli/internal/core/domain"
)

// newLoginCommand creates the login command
func newLoginCommand(container *CLIContainer) *cobra.Command {
	var (
		roleName    string
		email       string
		password    string
		interactive bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in as a learner, tutor or admin",
		Long: `Sign in to the marketplace. Each role keeps its own session, so you can be
signed in as a learner and a tutor at the same time.`,
		Example: `  hokz login --role user --email user@hokz.academy --password user123
  hokz login --role tutor --interactive`,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := domain.ParseRole(roleName)
			if err != nil {
				return err
			}

			if interactive {
				email, password, err = promptCredentials(cmd.InOrStdin(), cmd.OutOrStdout(), role, email)
				if err != nil {
					return err
				}
			}
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required (or use --interactive)")
			}

			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			rt.Router.Navigate("/" + role.String() + "/login")

			if _, err := rt.Client.Login(cmd.Context(), role, email, password); err != nil {
				return err
			}

			rt.Router.Navigate("/" + role.String())
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("Signed in as %s (%s)", email, role)))
			return nil
		},
	}

	cmd.Flags().StringVar(&roleName, "role", string(domain.RoleUser), "Role to sign in as (user, tutor, admin)")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Prompt for credentials")

	return cmd
}

// newLogoutCommand creates the logout command
func newLogoutCommand(container *CLIContainer) *cobra.Command {
	var roleName string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out of one role, or of every role",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}

			roles := rt.Stores.Authenticated()
			if roleName != "" {
				role, err := domain.ParseRole(roleName)
				if err != nil {
					return err
				}
				roles = []domain.Role{role}
			}

			if len(roles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("Not signed in"))
				return nil
			}

			for _, role := range roles {
				if err := rt.Client.Logout(cmd.Context(), role); err != nil {
					// The local session is gone either way
					fmt.Fprintln(cmd.ErrOrStderr(), warnStyle.Render(err.Error()))
				}
				fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed out of "+role.String()))
			}

			if len(rt.Stores.Authenticated()) == 0 && rt.ClearCookies != nil {
				if err := rt.ClearCookies(); err != nil {
					return fmt.Errorf("failed to clear session cookie: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&roleName, "role", "", "Role to sign out of (default: every role)")

	return cmd
}
