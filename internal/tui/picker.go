// Package tui holds the interactive terminal components of the CLI.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"prosperdash/internal/catalog"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true)

	pickerHelpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

const (
	idColWidth      = 8
	defaultRowCount = 15
)

// PickerModel is a filter-as-you-type question picker over the catalog.
type PickerModel struct {
	filter  textinput.Model
	table   table.Model
	catalog *catalog.Catalog
	matches []catalog.Question

	choice   *catalog.Question
	quitting bool
}

func NewPicker(c *catalog.Catalog) PickerModel {
	fi := textinput.New()
	fi.Placeholder = "Type to filter questions..."
	fi.CharLimit = 100
	fi.Width = 60
	fi.Focus()

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: idColWidth},
			{Title: "Question", Width: 70},
		}),
		table.WithFocused(true),
		table.WithHeight(defaultRowCount),
	)

	m := PickerModel{
		filter:  fi,
		table:   t,
		catalog: c,
	}
	m.applyFilter()
	return m
}

func (m PickerModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := msg.Width - idColWidth - 6
		if width < 20 {
			width = 20
		}
		m.table.SetColumns([]table.Column{
			{Title: "ID", Width: idColWidth},
			{Title: "Question", Width: width},
		})
		height := msg.Height - 7
		if height < 3 {
			height = 3
		}
		m.table.SetHeight(height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if idx := m.table.Cursor(); idx >= 0 && idx < len(m.matches) {
				q := m.matches[idx]
				m.choice = &q
			}
			m.quitting = true
			return m, tea.Quit
		case "up", "down", "pgup", "pgdown", "home", "end":
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}
	}

	// Everything else edits the filter, live.
	m.filter, cmd = m.filter.Update(msg)
	cmds = append(cmds, cmd)
	m.applyFilter()

	return m, tea.Batch(cmds...)
}

func (m *PickerModel) applyFilter() {
	m.matches = m.catalog.Filter(strings.Fields(m.filter.Value())...)

	rows := make([]table.Row, 0, len(m.matches))
	for _, q := range m.matches {
		rows = append(rows, table.Row{q.ID, q.Text})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(0)
	}
}

func (m PickerModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(pickerTitleStyle.Render(" Pick a question ") + "\n\n")
	sb.WriteString(m.filter.View() + "\n\n")
	sb.WriteString(m.table.View() + "\n")
	sb.WriteString(pickerHelpStyle.Render(
		fmt.Sprintf("%d matches | up/down move | enter select | esc cancel", len(m.matches))))
	return sb.String()
}

// Choice returns the selected question once the program has finished.
func (m PickerModel) Choice() (catalog.Question, bool) {
	if m.choice == nil {
		return catalog.Question{}, false
	}
	return *m.choice, true
}

// PickQuestion runs the picker and returns the operator's selection.
// ok is false when the picker was cancelled.
func PickQuestion(c *catalog.Catalog) (q catalog.Question, ok bool, err error) {
	final, err := tea.NewProgram(NewPicker(c)).Run()
	if err != nil {
		return catalog.Question{}, false, fmt.Errorf("question picker: %w", err)
	}
	m, isPicker := final.(PickerModel)
	if !isPicker {
		return catalog.Question{}, false, nil
	}
	q, ok = m.Choice()
	return q, ok, nil
}
