package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"hokz.academy/cli/internal/application/marketplace"
	"hokz.academy/cli/internal/core/domain"
	"hokz.academy/cli/internal/infrastructure/credentials"
	"hokz.academy/cli/internal/infrastructure/tokens"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// reportFailure prints err and, when every session was lost, where to sign in again
func reportFailure(w io.Writer, container *CLIContainer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: ")+err.Error())

	if target, ok := container.lastRedirect(); ok {
		fmt.Fprintln(w, warnStyle.Render("Your session has expired. Sign in again at "+target))
	}
	if errors.Is(err, domain.ErrNotAuthenticated) {
		fmt.Fprintln(w, mutedStyle.Render("Run 'hokz login --role ROLE' first"))
	}
}

// sessionRow is one line of the status table
type sessionRow struct {
	Role      domain.Role
	SignedIn  bool
	Email     string
	ExpiresIn string
}

// sessionRows builds the status table at now
func sessionRows(stores *credentials.RoleStores, now time.Time) []sessionRow {
	rows := make([]sessionRow, 0, 3)
	for _, store := range stores.All() {
		record := store.Get()
		row := sessionRow{Role: record.Role, SignedIn: record.IsAuthenticated, ExpiresIn: "-"}

		if record.HasToken() {
			if claims, err := tokens.Inspect(record.AccessToken); err == nil {
				row.Email = claims.Email
				row.ExpiresIn = describeExpiry(claims, now)
			} else {
				row.ExpiresIn = "unreadable"
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func describeExpiry(claims tokens.Claims, now time.Time) string {
	switch {
	case claims.ExpiresAt.IsZero():
		return "no expiry"
	case claims.Expired(now):
		return "expired (refreshes on next call)"
	}
	return claims.TimeUntilExpiry(now).Truncate(time.Second).String()
}

func renderSessions(rows []sessionRow) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ROLE", "SIGNED IN", "ACCOUNT", "TOKEN EXPIRES IN").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range rows {
		signedIn := mutedStyle.Render("no")
		if r.SignedIn {
			signedIn = successStyle.Render("yes")
		}
		t.Row(r.Role.String(), signedIn, r.Email, r.ExpiresIn)
	}
	return t.Render()
}

func renderCourses(courses []marketplace.Course) string {
	if len(courses) == 0 {
		return mutedStyle.Render("No courses")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("ID", "TITLE", "TUTOR", "PRICE", "RATING").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, c := range courses {
		t.Row(c.ID, c.Title, c.Tutor,
			"$"+strconv.FormatFloat(c.Price, 'f', 2, 64),
			strconv.FormatFloat(c.Rating, 'f', 1, 64))
	}
	return t.Render()
}
