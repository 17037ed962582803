package styles

import "github.com/go-go-golems/trendctl/pkg/runstate"

// Status icons
const (
	IconSuccess   = "✓"
	IconError     = "✗"
	IconWarning   = "⚠"
	IconInfo      = "ℹ"
	IconRunning   = "▶"
	IconPending   = "○"
	IconSystem    = "●"
	IconBullet    = "•"
	IconSelected  = "◉"
	IconStar      = "★"
	IconHealthy   = "●"
	IconUnhealthy = "●"
	IconUnknown   = "○"
)

// StepIcon returns the icon for a pipeline step status.
func StepIcon(s runstate.StepStatus) string {
	switch s {
	case runstate.StepRunning:
		return IconRunning
	case runstate.StepSuccess:
		return IconSuccess
	case runstate.StepFailure:
		return IconError
	default:
		return IconPending
	}
}

// LogLevelIcon returns the appropriate icon for a log level.
func LogLevelIcon(level string) string {
	switch level {
	case "error", "ERROR":
		return IconError
	case "warn", "WARN", "warning", "WARNING":
		return IconWarning
	case "info", "INFO":
		return IconInfo
	default:
		return IconBullet
	}
}

// HealthIcon returns the icon for a backend health component ("ok" or otherwise).
func HealthIcon(status string) string {
	switch status {
	case "ok", "healthy":
		return IconHealthy
	case "":
		return IconUnknown
	default:
		return IconUnhealthy
	}
}

// ScopeIcon marks whether a category is part of the run scope.
func ScopeIcon(selected bool) string {
	if selected {
		return IconSelected
	}
	return IconPending
}
