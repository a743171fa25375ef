// ABOUTME: Add/edit form view driven by the page's shared form controller
// ABOUTME: Text inputs per field; submit runs as a command and field errors render inline
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/pagen-admin/crm"
	"github.com/harperreed/pagen-admin/entity"
)

// editForm is the terminal face of a crm.Editor.
type editForm struct {
	page       string
	editor     crm.Editor
	fields     []string
	inputs     []textinput.Model
	focusIndex int
	back       ViewMode
	general    string
}

func newEditForm() editForm {
	return editForm{back: ViewList}
}

// openForm opens the current page's form for a new record (id 0) or an
// existing cached one.
func (m Model) openForm(id int64) (tea.Model, tea.Cmd) {
	c := m.current()
	ed := c.Editor()

	var err error
	if id == 0 {
		err = ed.OpenCreate()
	} else {
		err = ed.OpenEdit(id)
	}
	if err != nil {
		m.message = "Cannot open form: " + err.Error()
		return m, nil
	}

	back := m.viewMode
	m.form = editForm{
		page:   c.Name(),
		editor: ed,
		fields: ed.Fields(),
		back:   back,
	}
	values := ed.Values()
	for _, f := range m.form.fields {
		ti := textinput.New()
		ti.Placeholder = entity.Label(f)
		ti.CharLimit = 500
		ti.SetValue(formatInput(values[f]))
		m.form.inputs = append(m.form.inputs, ti)
	}
	m.form.updateFocus()
	m.viewMode = ViewEdit
	return m, textinput.Blink
}

func (f *editForm) updateFocus() {
	for i := range f.inputs {
		if i == f.focusIndex {
			f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
}

func (m Model) renderEditView() string {
	var s strings.Builder
	ed := m.form.editor
	if ed == nil {
		return ""
	}

	// Title
	title := "NEW "
	if ed.Mode() == entity.ModeEdit {
		title = "EDIT "
	}
	s.WriteString(titleStyle.Render(title + strings.ToUpper(singular(m.form.page))))
	s.WriteString("\n\n")

	// Form fields
	errs := ed.Errors()
	for i, input := range m.form.inputs {
		if i == m.form.focusIndex {
			s.WriteString("> ")
		} else {
			s.WriteString("  ")
		}
		field := m.form.fields[i]
		s.WriteString(fmt.Sprintf("%-16s ", entity.Label(field)))
		s.WriteString(input.View())
		s.WriteString("\n")
		if msg, ok := errs[field]; ok {
			s.WriteString("    ")
			s.WriteString(errorStyle.Render(msg))
			s.WriteString("\n")
		}
	}

	if ed.Busy() {
		s.WriteString("\nSaving...\n")
	}
	if m.form.general != "" {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(m.form.general))
		s.WriteString("\n")
	}

	s.WriteString("\n")

	// Help
	s.WriteString(m.renderEditHelp())

	return s.String()
}

func (m Model) renderEditHelp() string {
	help := []string{
		"Tab: Next field",
		"Enter: Save",
		"Esc: Cancel",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleEditKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if len(m.form.inputs) == 0 {
		m.viewMode = m.form.back
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if err := m.form.editor.Close(); err != nil {
			m.form.general = "Still saving, please wait"
			return m, nil
		}
		m.viewMode = m.form.back
		return m, nil
	case "tab", "down":
		m.form.focusIndex = (m.form.focusIndex + 1) % len(m.form.inputs)
		m.form.updateFocus()
		return m, nil
	case "shift+tab", "up":
		m.form.focusIndex = (m.form.focusIndex - 1 + len(m.form.inputs)) % len(m.form.inputs)
		m.form.updateFocus()
		return m, nil
	case "enter":
		return m.submitForm()
	}

	// Update current input
	var cmd tea.Cmd
	i := m.form.focusIndex
	m.form.inputs[i], cmd = m.form.inputs[i].Update(msg)
	return m, cmd
}

// submitForm pushes every input through the form's coercion and starts the
// save. Inputs that fail to coerce leave the form open with their errors.
func (m Model) submitForm() (tea.Model, tea.Cmd) {
	ed := m.form.editor
	if ed.Busy() {
		return m, nil
	}
	m.form.general = ""
	for i, f := range m.form.fields {
		if err := ed.SetRaw(f, strings.TrimSpace(m.form.inputs[i].Value())); err != nil {
			m.form.general = err.Error()
			return m, nil
		}
	}
	if len(ed.Errors()) > 0 {
		return m, nil
	}

	ctx, page := m.ctx, m.form.page
	return m, func() tea.Msg {
		values, err := ed.Submit(ctx)
		return savedMsg{page: page, values: values, err: err}
	}
}

func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if _, ok := entity.AsFieldErrors(msg.err); !ok {
			m.form.general = "Save failed: " + msg.err.Error()
		}
		m.viewMode = ViewEdit
		return m, nil
	}

	if id, ok := rowID(msg.values); ok {
		m.selectedID = id
	}
	m.message = "Saved " + singular(msg.page)
	m.viewMode = m.form.back
	return m, nil
}

func singular(page string) string {
	switch page {
	case "companies":
		return "company"
	case "activities":
		return "activity"
	}
	return strings.TrimSuffix(page, "s")
}
