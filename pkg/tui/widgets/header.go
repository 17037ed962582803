package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
)

// Keybind represents a keybinding hint.
type Keybind struct {
	Key   string
	Label string
}

// Header renders the title bar: app name, view tabs, run status and a
// right-aligned info line.
type Header struct {
	Title      string
	Tabs       []string
	Active     int
	Status     string
	StatusIcon string
	StatusOk   bool
	Info       string
	Width      int
	theme      styles.Theme
}

func NewHeader(title string) Header {
	return Header{
		Title: title,
		theme: styles.DefaultTheme(),
	}
}

func (h Header) WithTabs(tabs []string, active int) Header {
	h.Tabs = tabs
	h.Active = active
	return h
}

func (h Header) WithStatus(icon, status string, ok bool) Header {
	h.StatusIcon = icon
	h.Status = status
	h.StatusOk = ok
	return h
}

func (h Header) WithInfo(info string) Header {
	h.Info = info
	return h
}

func (h Header) WithWidth(w int) Header {
	h.Width = w
	return h
}

func (h Header) Render() string {
	theme := h.theme

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Text).
		Background(theme.Primary).
		Padding(0, 1).
		Render(h.Title)

	left := []string{title}
	if len(h.Tabs) > 0 {
		tabs := make([]string, 0, len(h.Tabs))
		for i, t := range h.Tabs {
			if i == h.Active {
				tabs = append(tabs, theme.Selected.Padding(0, 1).Render(t))
			} else {
				tabs = append(tabs, theme.TitleMuted.Padding(0, 1).Render(t))
			}
		}
		left = append(left, " ", strings.Join(tabs, ""))
	}
	if h.Status != "" {
		statusStyle := theme.StatusDead
		if h.StatusOk {
			statusStyle = theme.StatusRunning
		}
		icon := h.StatusIcon
		if icon == "" {
			icon = styles.IconSystem
		}
		left = append(left, "  ", statusStyle.Render(icon)+" "+lipgloss.NewStyle().Foreground(theme.Text).Render(h.Status))
	}
	leftPart := lipgloss.JoinHorizontal(lipgloss.Center, left...)

	rightPart := ""
	if h.Info != "" {
		rightPart = theme.TitleMuted.Render(h.Info)
	}

	gap := h.Width - lipgloss.Width(leftPart) - lipgloss.Width(rightPart)
	if gap < 1 {
		gap = 1
	}
	line := lipgloss.JoinHorizontal(lipgloss.Top, leftPart, lipgloss.NewStyle().Width(gap).Render(""), rightPart)

	return lipgloss.JoinVertical(lipgloss.Left, line, separator(h.Width, theme))
}

// RenderKeybinds renders a list of keybindings.
func RenderKeybinds(keybinds []Keybind, theme styles.Theme) string {
	parts := make([]string, 0, len(keybinds)*3)
	for i, kb := range keybinds {
		if i > 0 {
			parts = append(parts, theme.TitleMuted.Render(" "))
		}
		parts = append(parts, theme.KeybindKey.Render("["+kb.Key+"]"))
		parts = append(parts, theme.Keybind.Render(" "+kb.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func separator(width int, theme styles.Theme) string {
	if width <= 0 {
		width = 80
	}
	return lipgloss.NewStyle().Foreground(theme.Muted).Render(strings.Repeat("━", width))
}
