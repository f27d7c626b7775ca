package console

import "github.com/charmbracelet/lipgloss"

// Theme holds the styles of the bottom area and of history blocks.
type Theme struct {
	Prompt             lipgloss.Style
	Input              lipgloss.Style
	Border             lipgloss.Style
	StatusLine         lipgloss.Style
	StatusBarLeft      lipgloss.Style
	StatusBarRight     lipgloss.Style
	Completion         lipgloss.Style
	CompletionSelected lipgloss.Style
	CompletionDesc     lipgloss.Style
	MenuTitle          lipgloss.Style
	MenuItem           lipgloss.Style
	MenuSelected       lipgloss.Style
	User               lipgloss.Style
	ResponseHeader     lipgloss.Style
	ToolHeader         lipgloss.Style
	ToolOutput         lipgloss.Style
	Error              lipgloss.Style
	Log                lipgloss.Style
	Reasoning          lipgloss.Style
	Banner             lipgloss.Style
	Dim                lipgloss.Style
}

// NewTheme returns the Terminal7 palette.
func NewTheme() *Theme {
	magenta := lipgloss.Color("#F952F9")
	yellow := lipgloss.Color("#F4DB53")
	cyan := lipgloss.Color("#01FAFA")
	red := lipgloss.Color("#F54545")
	promptBackground := lipgloss.Color("#271D30")
	darkBorder := lipgloss.Color("#373702")
	gray := lipgloss.Color("#8A8A8A")

	return &Theme{
		Prompt:             lipgloss.NewStyle().Foreground(magenta).Bold(true),
		Input:              lipgloss.NewStyle(),
		Border:             lipgloss.NewStyle().Foreground(darkBorder),
		StatusLine:         lipgloss.NewStyle().Foreground(yellow),
		StatusBarLeft:      lipgloss.NewStyle().Foreground(cyan),
		StatusBarRight:     lipgloss.NewStyle().Foreground(gray),
		Completion:         lipgloss.NewStyle().Foreground(cyan),
		CompletionSelected: lipgloss.NewStyle().Foreground(cyan).Background(promptBackground).Bold(true),
		CompletionDesc:     lipgloss.NewStyle().Foreground(gray),
		MenuTitle:          lipgloss.NewStyle().Foreground(yellow).Bold(true),
		MenuItem:           lipgloss.NewStyle().Foreground(cyan),
		MenuSelected:       lipgloss.NewStyle().Foreground(magenta).Bold(true),
		User:               lipgloss.NewStyle().Foreground(magenta),
		ResponseHeader:     lipgloss.NewStyle().Foreground(cyan).Bold(true),
		ToolHeader:         lipgloss.NewStyle().Foreground(yellow),
		ToolOutput:         lipgloss.NewStyle().Foreground(gray),
		Error:              lipgloss.NewStyle().Foreground(red),
		Log:                lipgloss.NewStyle().Foreground(gray),
		Reasoning:          lipgloss.NewStyle().Foreground(gray).Italic(true),
		Banner:             lipgloss.NewStyle().Foreground(magenta).Bold(true),
		Dim:                lipgloss.NewStyle().Foreground(gray),
	}
}
