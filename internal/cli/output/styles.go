package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles holds the lipgloss styles used by commands.
// Colors are dropped automatically when the writer is not a terminal.
type Styles struct {
	Header   lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Added    lipgloss.Style
	Removed  lipgloss.Style
	Modified lipgloss.Style
}

// NewStyles creates styles bound to w's color profile.
func NewStyles(w io.Writer) *Styles {
	lr := lipgloss.NewRenderer(w)
	return &Styles{
		Header:   lr.NewStyle().Bold(true).Underline(true),
		Bold:     lr.NewStyle().Bold(true),
		Muted:    lr.NewStyle().Foreground(lipgloss.Color("245")),
		Success:  lr.NewStyle().Foreground(lipgloss.Color("42")),
		Warning:  lr.NewStyle().Foreground(lipgloss.Color("214")),
		Error:    lr.NewStyle().Foreground(lipgloss.Color("196")),
		Added:    lr.NewStyle().Foreground(lipgloss.Color("42")),
		Removed:  lr.NewStyle().Foreground(lipgloss.Color("196")),
		Modified: lr.NewStyle().Foreground(lipgloss.Color("214")),
	}
}
