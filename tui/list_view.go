// ABOUTME: List view with tabs, search, and sortable table
// ABOUTME: Handles row navigation and switching into the other views
package tui

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/harperreed/pagen-admin/entity"
	"github.com/harperreed/pagen-admin/schema"
)

var moneyFields = map[string]bool{
	"value":          true,
	"totalAmount":    true,
	"amount":         true,
	"totalDealValue": true,
	"discount":       true,
	"taxAmount":      true,
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Search"
	ti.Prompt = "/ "
	ti.CharLimit = 100
	return ti
}

func (m Model) renderListView() string {
	var s strings.Builder

	// Title
	s.WriteString(titleStyle.Render("PAGEN ADMIN"))
	s.WriteString("\n\n")

	// Tabs
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	if m.searching {
		s.WriteString(m.search.View())
		s.WriteString("\n\n")
	} else if q := m.current().Query(); q != "" {
		s.WriteString(fmt.Sprintf("Search: %s\n\n", q))
	}

	// Table
	s.WriteString(m.renderTable())
	s.WriteString("\n")

	if m.message != "" {
		s.WriteString("\n")
		s.WriteString(m.message)
		s.WriteString("\n")
	}

	// Help
	s.WriteString(m.renderListHelp())

	return s.String()
}

func (m Model) renderTabs() string {
	var rendered []string

	for i, c := range m.tabs {
		if i == m.tab {
			rendered = append(rendered, tabActiveStyle.Render(c.Title()))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(c.Title()))
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) visibleRows() []map[string]any {
	c := m.current()
	return c.List(c.Query(), c.Sort())
}

func (m Model) renderTable() string {
	c := m.current()
	if err := c.Err(); err != nil {
		return errorStyle.Render(fmt.Sprintf("Failed to load %s: %v", c.Name(), err)) + "\n" +
			helpStyle.Render("r: Retry")
	}
	if c.Loading() && c.Count() == 0 {
		return fmt.Sprintf("Loading %s...", c.Name())
	}

	items := m.visibleRows()
	if len(items) == 0 {
		return fmt.Sprintf("No %s found.", c.Name())
	}

	fields := c.Columns()
	sort := c.Sort()
	width := max(m.width/len(fields)-2, 8)

	var columns []table.Column
	for i, f := range fields {
		title := entity.Label(f)
		if sort.Field == f {
			if sort.Dir == entity.Desc {
				title += " ▼"
			} else {
				title += " ▲"
			}
		}
		if i == m.sortColumn {
			title = "[" + title + "]"
		}
		columns = append(columns, table.Column{Title: title, Width: width})
	}

	var rows []table.Row
	for _, values := range items {
		row := make(table.Row, 0, len(fields))
		for _, f := range fields {
			row = append(row, formatCell(f, values[f]))
		}
		rows = append(rows, row)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(max(m.height-12, 5)),
	)

	// Set selected row
	if m.selectedRow < len(rows) {
		t.SetCursor(m.selectedRow)
	}

	return t.View()
}

func (m Model) renderListHelp() string {
	help := []string{
		"↑/↓: Navigate",
		"Tab: Switch tabs",
		"Enter: View details",
		"/: Search",
		"←/→ s: Sort",
		"n: New",
		"b: Board",
		"g: Graph",
		"i: Status",
		"r: Reload",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) switchTab(delta int) (tea.Model, tea.Cmd) {
	m.tab = (m.tab + delta + len(m.tabs)) % len(m.tabs)
	m.selectedRow = 0
	m.sortColumn = 0
	m.message = ""
	return m, m.loadCmd(m.current())
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.current()
	switch msg.String() {
	case "up", "k":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "down", "j":
		if m.selectedRow < len(m.visibleRows())-1 {
			m.selectedRow++
		}
	case "tab":
		return m.switchTab(1)
	case "shift+tab":
		return m.switchTab(-1)
	case "left", "h":
		if m.sortColumn > 0 {
			m.sortColumn--
		}
	case "right", "l":
		if m.sortColumn < len(c.Columns())-1 {
			m.sortColumn++
		}
	case "s":
		c.SortBy(c.Columns()[m.sortColumn])
		m.selectedRow = 0
	case "enter":
		// Switch to detail view
		if id, ok := m.selectedRowID(); ok {
			m.selectedID = id
			m.viewMode = ViewDetail
		}
	case "/":
		m.searching = true
		m.search.SetValue(c.Query())
		m.search.Focus()
		return m, textinput.Blink
	case "n":
		// Switch to edit view (new)
		return m.openForm(0)
	case "b":
		m.viewMode = ViewBoard
		m.boardColumn, m.boardRow = 0, 0
		return m, m.loadCmd(m.ws.Deals, m.ws.Contacts)
	case "g":
		m.viewMode = ViewGraph
		m.graphDOT = ""
		return m, m.graphCmd()
	case "i":
		m.viewMode = ViewStatus
	case "r":
		m.message = ""
		return m, m.loadCmd(c)
	}

	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.current()
	switch msg.String() {
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		c.SetQuery("")
		m.selectedRow = 0
		return m, nil
	case "enter":
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	c.SetQuery(m.search.Value())
	m.selectedRow = 0
	return m, cmd
}

func (m Model) selectedRowID() (int64, bool) {
	rows := m.visibleRows()
	if m.selectedRow >= len(rows) {
		return 0, false
	}
	return rowID(rows[m.selectedRow])
}

func rowID(values map[string]any) (int64, bool) {
	switch id := values[schema.IDField].(type) {
	case float64:
		return int64(id), id > 0
	case int64:
		return id, id > 0
	}
	return 0, false
}

func formatCell(field string, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if x {
			return "yes"
		}
		return "no"
	case float64:
		if moneyFields[field] {
			return "$" + humanize.Commaf(x)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// formatInput renders a value the way a user would type it back.
func formatInput(v any) string {
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return formatCell("", v)
}
