package render

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Markdown renders model output for the terminal. A renderer that fails
// to initialize degrades to plain text instead of erroring.
type Markdown struct {
	renderer *glamour.TermRenderer
}

func NewMarkdown(width int) *Markdown {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return &Markdown{}
	}
	return &Markdown{renderer: renderer}
}

// Render returns the styled text, or the input unchanged when styling
// is unavailable.
func (m *Markdown) Render(text string) string {
	if m == nil || m.renderer == nil {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// Heading styles a one-line section header for terminal output.
func Heading(text string) string {
	return headingStyle.Render(text)
}

// Rule draws a horizontal divider sized to the given width.
func Rule(width int) string {
	if width <= 0 {
		width = 80
	}
	return ruleStyle.Render(strings.Repeat("─", width))
}
