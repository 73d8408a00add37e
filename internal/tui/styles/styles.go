// Package styles holds the lipgloss styles used for terminal output.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(14)

	Hash = lipgloss.NewStyle().
		Bold(true).
		Foreground(BlueColor)

	// Message styles
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// Box frames the final verdict
	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)
)

// Outcome kinds as rendered by KindColor and KindIcon.
const (
	kindBoundary     = "boundary_found"
	kindAllGood      = "all_good"
	kindAllBad       = "all_bad"
	kindNoData       = "no_data"
	kindInconclusive = "inconclusive"
)

// KindColor returns the color for an outcome kind
func KindColor(kind string) lipgloss.Color {
	switch kind {
	case kindBoundary:
		return PrimaryColor
	case kindAllGood:
		return SecondaryColor
	case kindAllBad:
		return ErrorColor
	case kindInconclusive:
		return WarningColor
	default:
		return MutedColor
	}
}

// KindIcon returns the icon for an outcome kind
func KindIcon(kind string) string {
	switch kind {
	case kindBoundary:
		return "◆"
	case kindAllGood:
		return "✓"
	case kindAllBad:
		return "✗"
	case kindNoData:
		return "○"
	case kindInconclusive:
		return "?"
	default:
		return "·"
	}
}

// VerdictStyle returns the style for a probe verdict
func VerdictStyle(present, verified bool) lipgloss.Style {
	switch {
	case !verified:
		return WarningMsg
	case present:
		return SuccessMsg
	default:
		return ErrorMsg
	}
}
