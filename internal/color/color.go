package color

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	success = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
	warning = lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	failure = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	accent  = lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}
	muted   = lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}
)

// Shared styles for summaries and prompts.
var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	SuccessStyle = lipgloss.NewStyle().Foreground(success)
	WarningStyle = lipgloss.NewStyle().Foreground(warning)
	ErrorStyle   = lipgloss.NewStyle().Bold(true).Foreground(failure)
	MutedStyle   = lipgloss.NewStyle().Foreground(muted)
	KeyStyle     = lipgloss.NewStyle().Bold(true)
	HintStyle    = lipgloss.NewStyle().Foreground(muted).Italic(true)
)

// ForState picks the style for a service state or stage outcome.
func ForState(state string) lipgloss.Style {
	switch state {
	case "installed-active", "installed", "created", "updated", "checked", "reused":
		return SuccessStyle
	case "installed-inactive", "warning", "skipped":
		return WarningStyle
	case "installed-failed", "failed":
		return ErrorStyle
	default:
		return MutedStyle
	}
}
