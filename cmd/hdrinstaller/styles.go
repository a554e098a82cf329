// SPDX-License-Identifier: MPL-2.0

package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette shared by all CLI output.
const (
	// ColorPrimary is green, used for titles and headers.
	ColorPrimary = lipgloss.Color("#22C55E")
	// ColorMuted is gray, used for secondary text.
	ColorMuted = lipgloss.Color("#6B7280")
	// ColorSuccess is used for positive outcomes.
	ColorSuccess = lipgloss.Color("#10B981")
	// ColorError is used for failures.
	ColorError = lipgloss.Color("#EF4444")
	// ColorWarning is used for warnings and denied channels.
	ColorWarning = lipgloss.Color("#F59E0B")
	// ColorHighlight is cyan, used for repositories, tags and commands.
	ColorHighlight = lipgloss.Color("#22D3EE")
)

var (
	// TitleStyle is for primary headers and section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	// SubtitleStyle is for secondary headers and descriptions.
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	// SuccessStyle is for success messages and positive indicators.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// ErrorStyle is for error messages and failure indicators.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	// WarningStyle is for warning messages and caution indicators.
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	// CmdStyle is for command names, repositories and tags.
	CmdStyle = lipgloss.NewStyle().
			Foreground(ColorHighlight)
)
