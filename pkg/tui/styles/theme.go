package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trendctl/pkg/runstate"
)

// Theme defines the color palette and base styles for the TUI.
type Theme struct {
	// Colors
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color

	// Base styles
	Border        lipgloss.Style
	Title         lipgloss.Style
	TitleMuted    lipgloss.Style
	Selected      lipgloss.Style
	Keybind       lipgloss.Style
	KeybindKey    lipgloss.Style
	StatusRunning lipgloss.Style
	StatusDead    lipgloss.Style
	StatusPending lipgloss.Style
}

// DefaultTheme returns the default trendctl TUI theme.
func DefaultTheme() Theme {
	primary := lipgloss.Color("#7C3AED")   // Purple
	secondary := lipgloss.Color("#06B6D4") // Cyan
	success := lipgloss.Color("#22C55E")   // Green
	warning := lipgloss.Color("#EAB308")   // Yellow
	errorC := lipgloss.Color("#EF4444")    // Red
	muted := lipgloss.Color("#6B7280")     // Gray
	text := lipgloss.Color("#F9FAFB")      // White
	textDim := lipgloss.Color("#9CA3AF")   // Light gray

	return Theme{
		Primary:   primary,
		Secondary: secondary,
		Success:   success,
		Warning:   warning,
		Error:     errorC,
		Muted:     muted,
		Text:      text,
		TextDim:   textDim,

		Border: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(muted),

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(text),

		TitleMuted: lipgloss.NewStyle().
			Foreground(textDim),

		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(lipgloss.Color("#374151")), // Dark gray background

		Keybind: lipgloss.NewStyle().
			Foreground(textDim),

		KeybindKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(secondary),

		StatusRunning: lipgloss.NewStyle().
			Foreground(success),

		StatusDead: lipgloss.NewStyle().
			Foreground(errorC),

		StatusPending: lipgloss.NewStyle().
			Foreground(muted),
	}
}

// StepStyle returns the style a step status is rendered with.
func (t Theme) StepStyle(s runstate.StepStatus) lipgloss.Style {
	switch s {
	case runstate.StepRunning:
		return lipgloss.NewStyle().Bold(true).Foreground(t.Secondary)
	case runstate.StepSuccess:
		return t.StatusRunning
	case runstate.StepFailure:
		return t.StatusDead
	default:
		return t.StatusPending
	}
}

// Banner styles a one-line notice: an error, a warning or plain info.
func (t Theme) Banner(level string) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1)
	switch level {
	case "error":
		return base.Foreground(t.Text).Background(t.Error)
	case "warn":
		return base.Foreground(lipgloss.Color("#111827")).Background(t.Warning)
	default:
		return base.Foreground(t.Text).Background(t.Primary)
	}
}

