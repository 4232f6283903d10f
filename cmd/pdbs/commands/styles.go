package commands

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles renders command output. Colors are dropped automatically when the
// writer is not a terminal.
type Styles struct {
	Header lipgloss.Style
	Label  lipgloss.Style
	OK     lipgloss.Style
	Bad    lipgloss.Style
	Dim    lipgloss.Style
	Mark   lipgloss.Style
}

// NewStyles returns styles bound to w's terminal capabilities.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Header: r.NewStyle().Bold(true).Underline(true),
		Label:  r.NewStyle().Bold(true),
		OK:     r.NewStyle().Foreground(lipgloss.Color("42")),
		Bad:    r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Dim:    r.NewStyle().Foreground(lipgloss.Color("245")),
		Mark:   r.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
	}
}
