package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
)

type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

type TableRow struct {
	Icon  string
	Cells []string
}

// Table renders a fixed-width table with a header and a selection cursor.
// Only the rows around the cursor that fit in Height are shown.
type Table struct {
	Columns []TableColumn
	Rows    []TableRow
	Cursor  int
	Width   int
	Height  int
	theme   styles.Theme
}

func NewTable(cols []TableColumn) Table {
	return Table{
		Columns: cols,
		Cursor:  -1,
		theme:   styles.DefaultTheme(),
	}
}

func (t Table) WithRows(rows []TableRow) Table {
	t.Rows = rows
	return t
}

// WithCursor selects a row; -1 selects none.
func (t Table) WithCursor(idx int) Table {
	t.Cursor = idx
	return t
}

func (t Table) WithSize(width, height int) Table {
	t.Width = width
	t.Height = height
	return t
}

func (t Table) Render() string {
	theme := t.theme
	if len(t.Rows) == 0 {
		return theme.TitleMuted.Render("(no data)")
	}

	lines := []string{t.renderHeader()}
	start, end := t.window()
	for i := start; i < end; i++ {
		lines = append(lines, t.renderRow(i))
	}
	return strings.Join(lines, "\n")
}

// window returns the visible row range.
func (t Table) window() (int, int) {
	n := len(t.Rows)
	visible := t.Height - 1
	if t.Height <= 0 || visible >= n {
		return 0, n
	}
	if visible < 1 {
		visible = 1
	}
	start := 0
	if t.Cursor >= visible {
		start = t.Cursor - visible + 1
	}
	return start, start + visible
}

func (t Table) renderHeader() string {
	parts := []string{"  ", "  "}
	for _, c := range t.Columns {
		parts = append(parts, t.cellStyle(c).Bold(true).Foreground(t.theme.TextDim).Render(fit(c.Header, c.Width)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (t Table) renderRow(i int) string {
	theme := t.theme
	row := t.Rows[i]
	selected := i == t.Cursor

	cursor := "  "
	if selected {
		cursor = theme.KeybindKey.Render("> ")
	}
	icon := "  "
	if row.Icon != "" {
		iconStyle := theme.StatusRunning
		switch row.Icon {
		case styles.IconError:
			iconStyle = theme.StatusDead
		case styles.IconPending:
			iconStyle = theme.StatusPending
		case styles.IconStar, styles.IconRunning:
			iconStyle = lipgloss.NewStyle().Foreground(theme.Warning)
		}
		icon = iconStyle.Render(row.Icon) + " "
	}

	parts := []string{cursor, icon}
	for j, cell := range row.Cells {
		col := TableColumn{Width: 20}
		if j < len(t.Columns) {
			col = t.Columns[j]
		}
		style := t.cellStyle(col)
		if selected {
			style = style.Bold(true).Foreground(theme.Text)
		} else {
			style = style.Foreground(theme.TextDim)
		}
		parts = append(parts, style.Render(fit(cell, col.Width)))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	if selected && t.Width > 0 {
		line = theme.Selected.Width(t.Width).Render(line)
	}
	return line
}

func (t Table) cellStyle(c TableColumn) lipgloss.Style {
	w := c.Width
	if w <= 0 {
		w = 20
	}
	return lipgloss.NewStyle().Width(w).Align(c.Align)
}

// fit truncates s to leave one column of padding.
func fit(s string, width int) string {
	if width <= 0 {
		width = 20
	}
	return ansi.Truncate(s, width-1, "…")
}
