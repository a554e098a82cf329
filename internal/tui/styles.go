// SPDX-License-Identifier: MPL-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the browser.
type Styles struct {
	Title    lipgloss.Style
	Entry    lipgloss.Style
	Selected lipgloss.Style
	Message  lipgloss.Style
	Subtle   lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Status   lipgloss.Style
	Spinner  lipgloss.Style
}

// DefaultStyles returns the green-title, cyan-selection palette.
func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E")).MarginBottom(1),
		Entry:    lipgloss.NewStyle().PaddingLeft(2),
		Selected: lipgloss.NewStyle().PaddingLeft(1).Bold(true).Foreground(lipgloss.Color("#22D3EE")),
		Message:  lipgloss.NewStyle().PaddingLeft(2),
		Subtle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Success:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#22C55E")),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
		Status: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(lipgloss.Color("#374151")),
		Spinner: lipgloss.NewStyle().Foreground(lipgloss.Color("#FACC15")),
	}
}
