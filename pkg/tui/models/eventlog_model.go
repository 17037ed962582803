package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trendctl/pkg/tui"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
	"github.com/go-go-golems/trendctl/pkg/tui/widgets"
)

var levelOrder = []tui.LogLevel{tui.LogLevelDebug, tui.LogLevelInfo, tui.LogLevelWarn, tui.LogLevelError}

func levelRank(l tui.LogLevel) int {
	for i, o := range levelOrder {
		if o == l {
			return i
		}
	}
	return 1
}

type EventLogModel struct {
	max     int
	entries []tui.EventLogEntry

	width  int
	height int

	searching bool
	search    textinput.Model
	filter    string
	minLevel  tui.LogLevel

	vp viewport.Model
}

func NewEventLogModel() EventLogModel {
	search := textinput.New()
	search.Placeholder = "filter…"
	search.Prompt = "/ "
	search.CharLimit = 200

	m := EventLogModel{max: 500, search: search, minLevel: tui.LogLevelInfo}
	m.vp = viewport.New(0, 0)
	return m
}

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width, m.height = width, height
	return m.resizeViewport()
}

// Searching reports whether the filter input has focus.
func (m EventLogModel) Searching() bool { return m.searching }

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.searching {
		switch v.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.filter = strings.TrimSpace(m.search.Value())
			m.searching = false
			m.search.Blur()
			return m.refreshViewportContent(true), nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(v)
		return m, cmd
	}

	switch v.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.filter)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case "ctrl+l":
		m.filter = ""
		m.search.SetValue("")
		return m.refreshViewportContent(true), nil
	case "v":
		m.minLevel = levelOrder[(levelRank(m.minLevel)+1)%len(levelOrder)]
		return m.refreshViewportContent(true), nil
	case "c":
		m.entries = nil
		return m.refreshViewportContent(true), nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(v)
	return m, cmd
}

func (m EventLogModel) Append(e tui.EventLogEntry) EventLogModel {
	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append([]tui.EventLogEntry{}, m.entries[len(m.entries)-m.max:]...)
	}
	return m.refreshViewportContent(true)
}

// Visible returns the entries that pass the level and text filters.
func (m EventLogModel) Visible() []tui.EventLogEntry {
	out := make([]tui.EventLogEntry, 0, len(m.entries))
	minRank := levelRank(m.minLevel)
	needle := strings.ToLower(m.filter)
	for _, e := range m.entries {
		level := e.Level
		if level == "" {
			level = tui.LogLevelInfo
		}
		if levelRank(level) < minRank {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Text), needle) &&
			!strings.Contains(strings.ToLower(e.Source), needle) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()

	titleRight := fmt.Sprintf("level≥%s  [/] filter  [v] level  [c] clear", m.minLevel)
	if m.filter != "" {
		titleRight = fmt.Sprintf("filter=%q  %s", m.filter, titleRight)
	}

	var sections []string
	if m.searching {
		sections = append(sections, m.search.View())
	}

	title := fmt.Sprintf("Events (%d)", len(m.entries))
	if len(m.entries) == 0 {
		sections = append(sections, widgets.NewBox(title).
			WithTitleRight(titleRight).
			WithContent(theme.TitleMuted.Render("(no events yet)")).
			WithSize(m.width, 5).
			Render())
	} else {
		sections = append(sections, widgets.NewBox(title).
			WithTitleRight(titleRight).
			WithContent(m.vp.View()).
			WithSize(m.width, m.vp.Height+3).
			Render())
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m EventLogModel) resizeViewport() EventLogModel {
	m.vp.Width = maxInt(0, m.width-2)
	m.vp.Height = maxInt(3, m.height-4)
	return m.refreshViewportContent(false)
}

func (m EventLogModel) refreshViewportContent(gotoBottom bool) EventLogModel {
	theme := styles.DefaultTheme()

	visible := m.Visible()
	if len(visible) == 0 {
		m.vp.SetContent("")
		return m
	}

	lines := make([]string, 0, len(visible))
	for _, e := range visible {
		ts := e.At
		if ts.IsZero() {
			ts = time.Now()
		}
		source := strings.TrimSpace(e.Source)
		if source == "" {
			source = "system"
		}
		level := e.Level
		if level == "" {
			level = tui.LogLevelInfo
		}

		style := theme.TitleMuted
		switch level {
		case tui.LogLevelError:
			style = theme.StatusDead
		case tui.LogLevelWarn:
			style = lipgloss.NewStyle().Foreground(theme.Warning)
		}

		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Center,
			style.Render(styles.LogLevelIcon(string(level))),
			" ",
			theme.TitleMuted.Render(ts.Format("15:04:05")),
			" ",
			theme.TitleMuted.Render(fmt.Sprintf("[%s]", source)),
			"  ",
			style.Render(e.Text),
		))
	}
	m.vp.SetContent(strings.Join(lines, "\n") + "\n")
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}
