package tui

import "github.com/charmbracelet/lipgloss"

// Palette shared by the list, progress view and summaries.
var (
	ColorInk     = lipgloss.Color("#E5E9F0")
	ColorDim     = lipgloss.Color("#7A8291")
	ColorAccent  = lipgloss.Color("#88C0D0")
	ColorSuccess = lipgloss.Color("#A3BE8C")
	ColorWarn    = lipgloss.Color("#EBCB8B")
	ColorError   = lipgloss.Color("#BF616A")
)

var (
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn)
	errorStyle = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
)

// Warn styles a cautionary message.
func Warn(s string) string { return warnStyle.Render(s) }

// Error styles a failure message.
func Error(s string) string { return errorStyle.Render(s) }

// Dim styles secondary text.
func Dim(s string) string { return dimStyle.Render(s) }
