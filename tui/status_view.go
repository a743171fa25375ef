// ABOUTME: Status view listing every collection's cache state
// ABOUTME: Shows record counts, last load time, skipped records, and load errors with reload controls
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	statusHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Underline(true)

	statusNameStyle = lipgloss.NewStyle().
			Bold(true).
			Width(14)

	statusIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	statusLoadingStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)

	statusSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235")).
				Foreground(lipgloss.Color("255")).
				Bold(true)

	statusMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true)
)

func (m Model) renderStatusView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("DATA STATUS"))
	s.WriteString("\n\n")

	s.WriteString(statusHeaderStyle.Render("Collections"))
	s.WriteString("\n\n")

	now := m.ws.Now()
	for i, c := range m.tabs {
		var row strings.Builder

		// Selection indicator
		if i == m.statusRow {
			row.WriteString("▶ ")
			row.WriteString(statusSelectedStyle.Render(statusNameStyle.Render(c.Title())))
		} else {
			row.WriteString("  ")
			row.WriteString(statusNameStyle.Render(c.Title()))
		}

		switch {
		case c.Loading():
			row.WriteString(statusLoadingStyle.Render("  ⟳ Loading..."))
		case c.Err() != nil:
			row.WriteString(errorStyle.Render("  ✗ Error: " + c.Err().Error()))
		case c.LoadedAt().IsZero():
			row.WriteString(statusMessageStyle.Render("  Not loaded yet"))
		default:
			row.WriteString(statusIdleStyle.Render(fmt.Sprintf("  ✓ %d records", c.Count())))
			row.WriteString(statusMessageStyle.Render(" • Loaded " + humanize.RelTime(c.LoadedAt(), now, "ago", "from now")))
			if n := c.Skipped(); n > 0 {
				row.WriteString(errorStyle.Render(fmt.Sprintf(" • %d unreadable skipped", n)))
			}
		}

		s.WriteString(row.String())
		s.WriteString("\n")
	}

	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(statusMessageStyle.Render("  " + m.message))
		s.WriteString("\n")
	}

	s.WriteString("\n")

	// Help
	s.WriteString(m.renderStatusHelp())

	return s.String()
}

func (m Model) renderStatusHelp() string {
	help := []string{
		"↑/↓: Select collection",
		"Enter: Reload selected",
		"a: Reload all",
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleStatusKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.statusRow > 0 {
			m.statusRow--
		}
	case "down", "j":
		if m.statusRow < len(m.tabs)-1 {
			m.statusRow++
		}
	case "enter":
		c := m.tabs[m.statusRow]
		m.message = fmt.Sprintf("Reloading %s...", c.Name())
		return m, m.loadCmd(c)
	case "a":
		m.message = "Reloading everything..."
		return m, m.loadCmd(m.tabs...)
	case "esc":
		m.viewMode = ViewList
		m.message = ""
	}

	return m, nil
}
