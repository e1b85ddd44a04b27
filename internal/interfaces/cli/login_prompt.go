package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hokz.academy/cli/internal/core/domain"
)

var errPromptCancelled = errors.New("login cancelled")

var (
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	blurredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

const (
	fieldEmail = iota
	fieldPassword
)

// loginPromptModel asks for an email and a password
type loginPromptModel struct {
	role      domain.Role
	values    [2]string
	focus     int
	submitted bool
	cancelled bool
	message   string
}

func newLoginPromptModel(role domain.Role, email string) loginPromptModel {
	m := loginPromptModel{role: role}
	m.values[fieldEmail] = email
	if email != "" {
		m.focus = fieldPassword
	}
	return m
}

// Init implements the Bubble Tea init method
func (m loginPromptModel) Init() tea.Cmd {
	return nil
}

// Update implements the Bubble Tea update method
func (m loginPromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.cancelled = true
		return m, tea.Quit

	case tea.KeyTab, tea.KeyDown, tea.KeyShiftTab, tea.KeyUp:
		m.focus = 1 - m.focus
		return m, nil

	case tea.KeyEnter:
		if m.focus == fieldEmail {
			m.focus = fieldPassword
			return m, nil
		}
		if strings.TrimSpace(m.values[fieldEmail]) == "" || m.values[fieldPassword] == "" {
			m.message = "email and password are required"
			return m, nil
		}
		m.submitted = true
		return m, tea.Quit

	case tea.KeyBackspace:
		if v := []rune(m.values[m.focus]); len(v) > 0 {
			m.values[m.focus] = string(v[:len(v)-1])
		}
		return m, nil

	case tea.KeyRunes, tea.KeySpace:
		m.values[m.focus] += string(key.Runes)
		m.message = ""
		return m, nil
	}

	return m, nil
}

// View implements the Bubble Tea view method
func (m loginPromptModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("Sign in to Hokz Academy as %s", m.role)))
	b.WriteString("\n\n")

	labels := [2]string{"Email   ", "Password"}
	for i, label := range labels {
		value := m.values[i]
		if i == fieldPassword {
			value = strings.Repeat("•", len([]rune(value)))
		}

		style := blurredStyle
		cursor := " "
		if i == m.focus {
			style = focusedStyle
			cursor = "█"
		}
		b.WriteString(style.Render(label+" > ") + value + cursor + "\n")
	}

	if m.message != "" {
		b.WriteString("\n" + warnStyle.Render(m.message) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render("tab: switch field • enter: submit • esc: cancel") + "\n")
	return b.String()
}

// promptCredentials runs the prompt and returns the entered email and password
func promptCredentials(in io.Reader, out io.Writer, role domain.Role, email string) (string, string, error) {
	program := tea.NewProgram(newLoginPromptModel(role, email), tea.WithInput(in), tea.WithOutput(out))

	final, err := program.Run()
	if err != nil {
		return "", "", fmt.Errorf("login prompt failed: %w", err)
	}

	m := final.(loginPromptModel)
	if m.cancelled || !m.submitted {
		return "", "", errPromptCancelled
	}
	return strings.TrimSpace(m.values[fieldEmail]), m.values[fieldPassword], nil
}
