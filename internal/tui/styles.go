package tui

import (
	"fmt"
	"math"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle for error messages.
	ErrorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

	// SidebarStyle frames the filter pane.
	SidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(34)

	// FocusedStyle marks the picker that receives keys.
	FocusedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	// ActiveTabStyle marks the selected result tab.
	ActiveTabStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// FormatFloat renders a statistic, keeping NaN visible.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}
