// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: One tab per CRM page over the workspace caches; loads and saves run as commands
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/viz"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewEdit
	ViewGraph
	ViewConfirmDelete
	ViewBoard
	ViewStatus
)

// Model is the main bubbletea model
type Model struct {
	ctx  context.Context
	ws   *crm.Workspace
	tabs []crm.Collection

	viewMode ViewMode
	tab      int

	// List view state
	selectedRow int
	searching   bool
	search      textinput.Model
	sortColumn  int

	// Detail view state
	selectedID int64

	// Edit view state
	form editForm

	// Graph view state
	graphDOT string

	// Board view state
	boardColumn int
	boardRow    int

	// Status view state
	statusRow int

	// Status line
	message string

	// UI state
	width  int
	height int
	err    error
}

// NewModel creates a new TUI model over a workspace. Nothing is loaded until
// Init runs.
func NewModel(ctx context.Context, ws *crm.Workspace) Model {
	return Model{
		ctx:      ctx,
		ws:       ws,
		tabs:     ws.Collections(),
		viewMode: ViewList,
		search:   newSearchInput(),
		form:     newEditForm(),
		width:    120,
		height:   30,
	}
}

// Messages produced by the commands below.
type (
	loadedMsg struct {
		page string
		err  error
	}
	savedMsg struct {
		page   string
		values map[string]any
		err    error
	}
	deletedMsg struct {
		page string
		id   int64
		err  error
	}
	transitionedMsg struct {
		page string
		id   int64
		err  error
	}
	graphMsg struct {
		dot string
		err error
	}
)

func (m Model) Init() tea.Cmd {
	return m.loadCmd(m.current())
}

func (m Model) current() crm.Collection {
	return m.tabs[m.tab]
}

func (m Model) loadCmd(pages ...crm.Collection) tea.Cmd {
	ctx := m.ctx
	var cmds []tea.Cmd
	for _, c := range pages {
		cmds = append(cmds, func() tea.Msg {
			return loadedMsg{page: c.Name(), err: c.Load(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) graphCmd() tea.Cmd {
	ctx, ws, name := m.ctx, m.ws, m.current().Name()
	return func() tea.Msg {
		if err := ws.LoadAll(ctx); err != nil {
			return graphMsg{err: err}
		}
		g := viz.NewGraphGenerator(ws)
		var (
			dot []byte
			err error
		)
		switch name {
		case "contacts", "companies":
			dot, err = g.GenerateAccountGraph(ctx, viz.FormatDOT)
		default:
			dot, err = g.GeneratePipelineGraph(ctx, viz.FormatDOT)
		}
		return graphMsg{dot: string(dot), err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		if msg.err != nil {
			m.message = "Failed to load " + msg.page + ": " + msg.err.Error()
		} else if m.viewMode == ViewStatus {
			m.message = "Reloaded " + msg.page
		}
		if n := len(m.visibleRows()); m.selectedRow >= n {
			m.selectedRow = max(n-1, 0)
		}
		return m, nil
	case savedMsg:
		return m.handleSaved(msg)
	case deletedMsg:
		return m.handleDeleted(msg)
	case transitionedMsg:
		switch {
		case msg.err != nil:
			m.message = "Move failed: " + msg.err.Error()
		case msg.page == "activities":
			m.message = "Completed"
		default:
			m.message = "Moved"
		}
		return m, nil
	case graphMsg:
		if msg.err != nil {
			m.graphDOT = "Error: " + msg.err.Error()
		} else {
			m.graphDOT = msg.dot
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewList:
		return m.renderListView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewEdit:
		return m.renderEditView()
	case ViewGraph:
		return m.renderGraphView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	case ViewBoard:
		return m.renderBoardView()
	case ViewStatus:
		return m.renderStatusView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	// Text entry owns every other key.
	if m.viewMode == ViewEdit || m.searching {
		if m.viewMode == ViewEdit {
			return m.handleEditKeys(msg)
		}
		return m.handleSearchKeys(msg)
	}
	if msg.String() == "q" {
		return m, tea.Quit
	}

	// Delegate to view-specific handlers
	switch m.viewMode {
	case ViewList:
		return m.handleListKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewGraph:
		return m.handleGraphKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewStatus:
		return m.handleStatusKeys(msg)
	}

	return m, nil
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)
