package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
)

// Footer renders a separator and a centered keybindings bar, with an
// optional status line above it.
type Footer struct {
	Keybinds []Keybind
	Notice   string
	Level    string
	Width    int
	theme    styles.Theme
}

func NewFooter(keybinds []Keybind) Footer {
	return Footer{
		Keybinds: keybinds,
		theme:    styles.DefaultTheme(),
	}
}

func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

// WithNotice shows text above the key hints; level is "error", "warn" or "info".
func (f Footer) WithNotice(level, text string) Footer {
	f.Level = level
	f.Notice = text
	return f
}

func (f Footer) Render() string {
	theme := f.theme
	keys := RenderKeybinds(f.Keybinds, theme)

	pad := (f.Width - lipgloss.Width(keys)) / 2
	if pad < 0 {
		pad = 0
	}
	keysLine := lipgloss.NewStyle().PaddingLeft(pad).Width(f.Width).Render(keys)

	lines := []string{separator(f.Width, theme)}
	if f.Notice != "" {
		lines = append(lines, theme.Banner(f.Level).Render(f.Notice))
	}
	lines = append(lines, keysLine)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
