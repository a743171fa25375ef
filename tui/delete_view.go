// ABOUTME: Delete confirmation dialog for the selected record
// ABOUTME: Deletion runs as a command; the record leaves the cache only once the store agrees
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/pagen-admin/entity"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	c := m.current()
	entityType := singular(c.Name())
	values, ok := c.Get(m.selectedID)
	if !ok {
		return errorStyle.Render(fmt.Sprintf("Error loading %s %d", entityType, m.selectedID))
	}
	entityName := formatCell("", values[c.Mapping().Display()])

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := fmt.Sprintf("Are you sure you want to delete this %s?", entityType)
	entityInfo := fmt.Sprintf("\n%s: %s\n", strings.ToUpper(entityType), entityName)
	warning := "\nThis action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	box := confirmBoxStyle.Render(content)

	// Center the box on screen
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		box,
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		// Confirm delete
		c, ctx, id := m.current(), m.ctx, m.selectedID
		return m, func() tea.Msg {
			return deletedMsg{page: c.Name(), id: id, err: c.Delete(ctx, id)}
		}
	case "n", "N", "esc":
		// Cancel delete
		m.viewMode = ViewDetail
	}

	return m, nil
}

func (m Model) handleDeleted(msg deletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.message = "Error: " + msg.err.Error()
		if errors.Is(msg.err, entity.ErrNotFound) {
			m.viewMode = ViewList
		} else {
			m.viewMode = ViewDetail
		}
		return m, nil
	}

	m.message = "Successfully deleted"
	m.viewMode = ViewList
	m.selectedID = 0 // Clear selection
	if n := len(m.visibleRows()); m.selectedRow >= n && n > 0 {
		m.selectedRow = n - 1
	}
	return m, nil
}
