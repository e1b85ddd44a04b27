package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"hokz.academy/cli/internal/application/marketplace"
	"hokz.academy/cli/internal/core/domain"
)

// newProfileCommand creates the profile command
func newProfileCommand(container *CLIContainer) *cobra.Command {
	var roleName string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show the account behind a role session",
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := domain.ParseRole(roleName)
			if err != nil {
				return err
			}
			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			rt.Router.Navigate("/" + role.String() + "/profile")

			profile, err := rt.Client.Profile(cmd.Context(), role)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(profile.Name))
			fmt.Fprintf(out, "Email: %s\nRole:  %s\n", profile.Email, profile.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&roleName, "role", string(domain.RoleUser), "Role whose profile to show")

	return cmd
}

// newCoursesCommand creates the courses command
func newCoursesCommand(container *CLIContainer) *cobra.Command {
	var (
		search    string
		managedAs string
	)

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Browse the course catalogue",
		Example: `  hokz courses --search go
  hokz courses --managed-as tutor`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}

			var courses []marketplace.Course
			if managedAs != "" {
				role, err := domain.ParseRole(managedAs)
				if err != nil {
					return err
				}
				rt.Router.Navigate("/" + role.String() + "/courses")
				courses, err = rt.Client.TeachingCourses(cmd.Context(), role)
				if err != nil {
					return err
				}
			} else {
				rt.Router.Navigate("/courses")
				courses, err = rt.Client.Courses(cmd.Context(), search)
				if err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderCourses(courses))
			return nil
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter courses by title")
	cmd.Flags().StringVar(&managedAs, "managed-as", "", "List courses managed by a tutor or admin session")

	return cmd
}

// newCartCommand creates the cart command
func newCartCommand(container *CLIContainer) *cobra.Command {
	var add string

	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the learner's cart",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			rt.Router.Navigate("/user/cart")

			var courses []marketplace.Course
			if add != "" {
				courses, err = rt.Client.AddToCart(cmd.Context(), add)
			} else {
				courses, err = rt.Client.Cart(cmd.Context())
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderCourses(courses))
			return nil
		},
	}

	cmd.Flags().StringVar(&add, "add", "", "Course ID to add before listing")

	return cmd
}

// newWishlistCommand creates the wishlist command
func newWishlistCommand(container *CLIContainer) *cobra.Command {
	return &cobra.Command{
		Use:   "wishlist",
		Short: "Show the learner's wishlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}
			rt.Router.Navigate("/user/wishlist")

			courses, err := rt.Client.Wishlist(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderCourses(courses))
			return nil
		},
	}
}
