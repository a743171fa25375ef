// ABOUTME: Detail view for the selected record of the current page
// ABOUTME: Shows every mapped field plus related contacts, deals, and activities
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(20)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

func (m Model) renderDetailView() string {
	var s strings.Builder
	c := m.current()

	// Title
	s.WriteString(titleStyle.Render(strings.ToUpper(singular(c.Name())) + " DETAIL"))
	s.WriteString("\n\n")

	values, ok := c.Get(m.selectedID)
	if !ok {
		s.WriteString(errorStyle.Render(fmt.Sprintf("%s %d is no longer loaded", singular(c.Name()), m.selectedID)))
		s.WriteString("\n\n")
		s.WriteString(helpStyle.Render("Esc: Back"))
		return s.String()
	}

	for _, f := range c.Mapping().Fields() {
		v := formatCell(f.UI, values[f.UI])
		if v == "" || f.UI == "activities" {
			continue
		}
		s.WriteString(m.renderField(entity.Label(f.UI), v))
	}

	s.WriteString(m.renderRelated(c.Name()))

	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(m.message)
		s.WriteString("\n")
	}

	s.WriteString("\n")

	// Help
	s.WriteString(m.renderDetailHelp())

	return s.String()
}

func (m Model) renderField(label, value string) string {
	return fmt.Sprintf("%s %s\n",
		fieldLabelStyle.Render(label+":"),
		fieldValueStyle.Render(value))
}

func (m Model) renderRelated(page string) string {
	var s strings.Builder

	switch page {
	case "deals":
		deal, ok := m.ws.Deals.Cache().Get(m.selectedID)
		if !ok {
			return ""
		}
		if contact, ok := m.ws.DealContact(deal); ok {
			s.WriteString("\n")
			s.WriteString(m.renderField("Contact", fmt.Sprintf("%s <%s>", contact.Name, contact.Email)))
		}
		if len(deal.Activities) > 0 {
			s.WriteString("\n")
			s.WriteString(titleStyle.Render("History"))
			s.WriteString("\n")
			for _, entry := range deal.Activities {
				s.WriteString(fmt.Sprintf("  %s  %s\n", entry.Timestamp.Format("2006-01-02 15:04"), entry.Description))
			}
		}
		s.WriteString(renderActivities(m.ws.ActivitiesForDeal(deal.ID)))
	case "contacts":
		s.WriteString(renderActivities(m.ws.ActivitiesForContact(m.selectedID)))
	}

	return s.String()
}

func renderActivities(activities []models.Activity) string {
	if len(activities) == 0 {
		return ""
	}
	var s strings.Builder
	s.WriteString("\n")
	s.WriteString(titleStyle.Render(fmt.Sprintf("Activities (%d)", len(activities))))
	s.WriteString("\n")
	for _, a := range activities {
		s.WriteString(fmt.Sprintf("  • %s [%s] %s\n", a.Title, a.Status, a.DueDate))
	}
	return s.String()
}

func (m Model) renderDetailHelp() string {
	help := []string{
		"Esc: Back",
		"e: Edit",
		"d: Delete",
	}
	if m.current().Name() == "activities" {
		help = append(help, "c: Complete")
	}
	help = append(help, "g: Graph", "q: Quit")
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.message = ""
	case "e":
		return m.openForm(m.selectedID)
	case "d":
		m.viewMode = ViewConfirmDelete
	case "c":
		if m.current().Name() != "activities" {
			return m, nil
		}
		ctx, ws, id := m.ctx, m.ws, m.selectedID
		return m, func() tea.Msg {
			_, err := ws.CompleteActivity(ctx, id, "")
			return transitionedMsg{page: "activities", id: id, err: err}
		}
	case "g":
		m.viewMode = ViewGraph
		m.graphDOT = ""
		return m, m.graphCmd()
	}

	return m, nil
}
