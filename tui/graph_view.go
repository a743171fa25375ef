// ABOUTME: Graph view showing the DOT source of the pipeline or account graph
// ABOUTME: Deal-side tabs get the pipeline graph; contact and company tabs get accounts
package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func (m Model) renderGraphView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("GRAPH VIEW"))
	s.WriteString("\n\n")

	if m.graphDOT == "" {
		s.WriteString("Generating graph...\n")
	} else {
		lines := strings.Split(m.graphDOT, "\n")
		if limit := max(m.height-8, 5); len(lines) > limit {
			lines = append(lines[:limit], "...")
		}
		s.WriteString(lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Render(strings.Join(lines, "\n")))
	}

	s.WriteString("\n\n")

	// Help
	s.WriteString(m.renderGraphHelp())

	return s.String()
}

func (m Model) renderGraphHelp() string {
	help := []string{
		"Esc: Back",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleGraphKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.selectedID != 0 {
			m.viewMode = ViewDetail
		} else {
			m.viewMode = ViewList
		}
		m.graphDOT = ""
	}

	return m, nil
}
