package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a horizontal bar with a "done/total" label.
type ProgressBar struct {
	done  int
	total int
	width int
	style lipgloss.Style
}

// NewProgressBar shows done out of total; values are clamped.
func NewProgressBar(done, total int) ProgressBar {
	if total < 0 {
		total = 0
	}
	if done < 0 {
		done = 0
	}
	if done > total {
		done = total
	}
	return ProgressBar{done: done, total: total, width: 20}
}

func (p ProgressBar) WithWidth(width int) ProgressBar {
	if width < 5 {
		width = 5
	}
	p.width = width
	return p
}

func (p ProgressBar) WithStyle(style lipgloss.Style) ProgressBar {
	p.style = style
	return p
}

func (p ProgressBar) Percent() int {
	if p.total == 0 {
		return 0
	}
	return p.done * 100 / p.total
}

func (p ProgressBar) Render() string {
	filled := 0
	if p.total > 0 {
		filled = p.width * p.done / p.total
	}
	bar := p.style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", p.width-filled)
	return fmt.Sprintf("%s %d/%d %3d%%", bar, p.done, p.total, p.Percent())
}
