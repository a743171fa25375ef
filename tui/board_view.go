// ABOUTME: Kanban board of deals grouped by pipeline stage
// ABOUTME: Cards move between stages through the deal stage transition
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/models"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	cardSelectedStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("170"))
)

func (m Model) board() []entity.Bucket[models.Deal] {
	return m.ws.Board(m.ws.Deals.Query())
}

func (m Model) renderBoardView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("DEAL PIPELINE"))
	s.WriteString("\n\n")

	if err := m.ws.Deals.Err(); err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Failed to load deals: %v", err)))
		s.WriteString("\n")
		s.WriteString(helpStyle.Render("r: Retry • Esc: Back"))
		return s.String()
	}

	buckets := m.board()
	width := max(m.width/len(buckets)-4, 14)

	var columns []string
	for i, b := range buckets {
		var col strings.Builder
		col.WriteString(lipgloss.NewStyle().Bold(true).Render(b.Name))
		col.WriteString(fmt.Sprintf("\n%d • $%s\n\n", b.Count, humanize.Commaf(b.Total)))
		for j, d := range b.Items {
			card := truncate(d.Title, width-2)
			if name := m.ws.DealContactName(d); name != "" {
				card += "\n  " + truncate(name, width-4)
			}
			if i == m.boardColumn && j == m.boardRow {
				col.WriteString(cardSelectedStyle.Render("> " + card))
			} else {
				col.WriteString("  " + card)
			}
			col.WriteString("\n")
		}

		style := columnStyle
		if i == m.boardColumn {
			style = activeColumnStyle
		}
		columns = append(columns, style.Width(width).Render(col.String()))
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, columns...))
	s.WriteString("\n")

	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(m.message)
		s.WriteString("\n")
	}

	s.WriteString(m.renderBoardHelp())

	return s.String()
}

func (m Model) renderBoardHelp() string {
	help := []string{
		"←/→: Stage",
		"↑/↓: Deal",
		"</>: Move deal",
		"Enter: Details",
		"Esc: Back",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

// selectedDeal is the card under the cursor, if any.
func (m Model) selectedDeal() (models.Deal, bool) {
	buckets := m.board()
	if m.boardColumn >= len(buckets) {
		return models.Deal{}, false
	}
	items := buckets[m.boardColumn].Items
	if m.boardRow >= len(items) {
		return models.Deal{}, false
	}
	return items[m.boardRow], true
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	buckets := m.board()

	switch msg.String() {
	case "esc":
		m.viewMode = ViewList
		m.message = ""
	case "left", "h":
		if m.boardColumn > 0 {
			m.boardColumn--
			m.boardRow = 0
		}
	case "right", "l":
		if m.boardColumn < len(buckets)-1 {
			m.boardColumn++
			m.boardRow = 0
		}
	case "up", "k":
		if m.boardRow > 0 {
			m.boardRow--
		}
	case "down", "j":
		if m.boardRow < len(buckets[m.boardColumn].Items)-1 {
			m.boardRow++
		}
	case "<", "shift+left":
		return m.moveSelected(-1)
	case ">", "shift+right":
		return m.moveSelected(1)
	case "enter":
		d, ok := m.selectedDeal()
		if !ok {
			return m, nil
		}
		m.tab = m.tabIndex("deals")
		m.selectedID = d.ID
		m.viewMode = ViewDetail
	case "r":
		return m, m.loadCmd(m.ws.Deals, m.ws.Contacts)
	}

	return m, nil
}

// moveSelected transitions the selected deal one stage left or right and
// keeps the cursor on it.
func (m Model) moveSelected(delta int) (tea.Model, tea.Cmd) {
	d, ok := m.selectedDeal()
	if !ok {
		return m, nil
	}
	target := m.boardColumn + delta
	if target < 0 || target >= len(models.KanbanStages) {
		return m, nil
	}

	stage := models.KanbanStages[target]
	m.boardColumn = target
	m.boardRow = 0
	ctx, ws := m.ctx, m.ws
	return m, func() tea.Msg {
		_, err := ws.MoveDeal(ctx, d.ID, stage)
		return transitionedMsg{page: "deals", id: d.ID, err: err}
	}
}

func (m Model) tabIndex(name string) int {
	for i, c := range m.tabs {
		if c.Name() == name {
			return i
		}
	}
	return m.tab
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
