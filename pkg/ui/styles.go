package ui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorCyan    = lipgloss.Color("#00FFFF")
	colorMagenta = lipgloss.Color("#FF00FF")
	colorGreen   = lipgloss.Color("#39FF14")
	colorYellow  = lipgloss.Color("#FFFF00")
	colorOrange  = lipgloss.Color("#FF6700")
	colorRed     = lipgloss.Color("#FF0000")
	colorDim     = lipgloss.Color("#B0B0B0")

	labelStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	successStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorOrange).
			Bold(true)

	highlightStyle = lipgloss.NewStyle().
			Foreground(colorMagenta)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim).
			Faint(true)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true).
			Underline(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMagenta).
			Padding(0, 1)
)

// Styled text helpers
var (
	Cyan    = labelStyle.Render
	Yellow  = valueStyle.Render
	Red     = errorStyle.Render
	Green   = successStyle.Render
	Orange  = warningStyle.Render
	Magenta = highlightStyle.Render
	Dim     = dimStyle.Render
)
