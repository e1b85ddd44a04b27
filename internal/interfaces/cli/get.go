package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// newGetCommand creates the get command
func newGetCommand(container *CLIContainer) *cobra.Command {
	var (
		asPath  string
		include bool
	)

	cmd := &cobra.Command{
		Use:   "get PATH",
		Short: "Call any API endpoint with the active sessions",
		Long: `Send a GET request to PATH with the highest priority active session.

The client is treated as if it were on the page given with --as-path. When the
session cannot be refreshed, that page decides which login you are sent to. By
default the page is derived from PATH, so /api/tutor/courses counts as /tutor.`,
		Example: `  hokz get /api/user/cart
  hokz get /api/courses?search=go --as-path /courses --include`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			rt, err := container.Runtime(cmd.Context())
			if err != nil {
				return err
			}

			nav := asPath
			if nav == "" {
				nav = pageForAPIPath(path)
			}
			rt.Router.Navigate(nav)

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, strings.TrimRight(rt.Config.API.BaseURL, "/")+path, nil)
			if err != nil {
				return fmt.Errorf("invalid path: %w", err)
			}
			resp, err := rt.HTTPClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			out := cmd.OutOrStdout()
			if include {
				writeStatusAndHeaders(out, resp)
			}

			var pretty bytes.Buffer
			if json.Indent(&pretty, body, "", "  ") == nil {
				fmt.Fprintln(out, pretty.String())
			} else if len(body) > 0 {
				fmt.Fprintln(out, string(body))
			}

			if resp.StatusCode >= 400 {
				return fmt.Errorf("GET %s: %s", path, resp.Status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&asPath, "as-path", "", "Client page to act from (default: derived from PATH)")
	cmd.Flags().BoolVar(&include, "include", false, "Print the status line and response headers")

	return cmd
}

// pageForAPIPath maps an API path to the client page that would call it
func pageForAPIPath(path string) string {
	page, _, _ := strings.Cut(path, "?")
	page = strings.TrimPrefix(page, "/api")
	if page == "" {
		return "/"
	}
	return page
}

func writeStatusAndHeaders(w io.Writer, resp *http.Response) {
	fmt.Fprintln(w, titleStyle.Render(resp.Proto+" "+resp.Status))

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", mutedStyle.Render(k), strings.Join(resp.Header[k], ", "))
	}
	fmt.Fprintln(w)
}
