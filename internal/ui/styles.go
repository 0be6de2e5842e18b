package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/drivechat/drivechat/internal/search"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("39")  // Cyan
	ColorSecondary = lipgloss.Color("212") // Pink
	ColorSuccess   = lipgloss.Color("82")  // Green
	ColorWarning   = lipgloss.Color("214") // Orange
	ColorError     = lipgloss.Color("196") // Red
	ColorMuted     = lipgloss.Color("245") // Gray
	ColorHighlight = lipgloss.Color("226") // Yellow
)

// Styles for various UI elements
var (
	// Text styles
	Bold      = lipgloss.NewStyle().Bold(true)
	Dim       = lipgloss.NewStyle().Foreground(ColorMuted)
	Highlight = lipgloss.NewStyle().Foreground(ColorHighlight)
	Header    = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	// Status styles
	Success = lipgloss.NewStyle().Foreground(ColorSuccess)
	Warning = lipgloss.NewStyle().Foreground(ColorWarning)
	Error   = lipgloss.NewStyle().Foreground(ColorError)

	// Document styles
	FileName = lipgloss.NewStyle().Foreground(ColorPrimary)
	Link     = lipgloss.NewStyle().Foreground(ColorMuted).Underline(true)

	// Match styles
	MatchHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)
	MatchScore = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	// Section styles
	SectionTitle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true).
			MarginTop(1)
	Divider = lipgloss.NewStyle().
		Foreground(ColorMuted)

	// Citation styles
	Citation = lipgloss.NewStyle().
			Foreground(ColorHighlight).
			Bold(true)
	SourceRef = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

// Band colors, high to low relevance.
var bandStyles = map[search.Band]lipgloss.Style{
	search.BandHigh:   lipgloss.NewStyle().Foreground(ColorSuccess),
	search.BandMedium: lipgloss.NewStyle().Foreground(ColorWarning),
	search.BandLow:    lipgloss.NewStyle().Foreground(ColorMuted),
}

// HorizontalRule returns a styled horizontal divider.
func HorizontalRule(width int) string {
	return Divider.Render(strings.Repeat("─", width))
}

// FormatScore formats a similarity score as a percentage.
func FormatScore(score float64) string {
	return MatchScore.Render(fmt.Sprintf("(%.1f%% match)", score*100))
}

// FormatBand renders a relevance band in its color.
func FormatBand(band search.Band) string {
	style, ok := bandStyles[band]
	if !ok {
		style = Dim
	}
	return style.Render(string(band))
}
