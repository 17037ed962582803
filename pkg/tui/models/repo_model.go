package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/markdown"
	"github.com/go-go-golems/trendctl/pkg/tui"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
	"github.com/go-go-golems/trendctl/pkg/tui/widgets"
)

type RepoModel struct {
	width  int
	height int

	id       int
	name     string
	loading  bool
	detail   *api.RepositoryDetail
	errText  string
	renderer *markdown.Renderer

	vp  viewport.Model
	now func() time.Time
}

func NewRepoModel(r *markdown.Renderer) RepoModel {
	if r == nil {
		r = markdown.NewRenderer(true)
	}
	return RepoModel{renderer: r, vp: viewport.New(0, 0), now: time.Now}
}

func (m RepoModel) WithSize(width, height int) RepoModel {
	m.width, m.height = width, height
	m.vp.Width = maxInt(0, width-2)
	m.vp.Height = maxInt(3, height-3)
	return m.refresh()
}

// Loading resets the view for repository id while its detail is fetched.
func (m RepoModel) Loading(id int, name string) RepoModel {
	m.id, m.name = id, name
	m.loading = true
	m.detail = nil
	m.errText = ""
	m.vp.GotoTop()
	return m.refresh()
}

func (m RepoModel) WithDetail(msg tui.RepoDetailMsg) RepoModel {
	if msg.ID != m.id {
		return m
	}
	m.loading = false
	if msg.Err != nil {
		m.errText = msg.Err.Error()
		m.detail = nil
	} else {
		m.detail = msg.Detail
		m.errText = ""
		if m.detail != nil && m.detail.FullName != "" {
			m.name = m.detail.FullName
		}
	}
	return m.refresh()
}

func (m RepoModel) Update(msg tea.Msg) (RepoModel, tea.Cmd) {
	if v, ok := msg.(tea.KeyMsg); ok {
		switch v.String() {
		case "esc", "backspace":
			return m, emit(tui.NavigateBackMsg{})
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(v)
		return m, cmd
	}
	return m, nil
}

func (m RepoModel) View() string {
	title := m.name
	if title == "" {
		title = "#" + strconv.Itoa(m.id)
	}
	return widgets.NewBox(title).
		WithTitleRight("[esc] back  [↑/↓] scroll").
		WithContent(m.vp.View()).
		WithSize(m.width, m.height).
		Render()
}

func (m RepoModel) refresh() RepoModel {
	m.vp.SetContent(m.content())
	return m
}

func (m RepoModel) content() string {
	theme := styles.DefaultTheme()
	switch {
	case m.loading:
		return theme.TitleMuted.Render("Loading…")
	case m.errText != "":
		return theme.StatusDead.Render(styles.IconError + " " + m.errText)
	case m.detail == nil:
		return ""
	}

	d := m.detail
	width := maxInt(20, m.vp.Width)
	var b strings.Builder

	if d.Description != "" {
		b.WriteString(d.Description)
		b.WriteString("\n\n")
	}
	facts := []string{
		fmt.Sprintf("%s %d stars", styles.IconStar, d.StarsCount),
		fmt.Sprintf("%d forks", d.ForksCount),
		fmt.Sprintf("%d open issues", d.OpenIssuesCount),
	}
	if d.PrimaryLanguage != "" {
		facts = append(facts, d.PrimaryLanguage)
	}
	if d.LicenseSPDX != "" {
		facts = append(facts, d.LicenseSPDX)
	}
	facts = append(facts, "pushed "+d.PushedAt.Ago(m.now()))
	b.WriteString(theme.TitleMuted.Render(strings.Join(facts, " · ")))
	b.WriteString("\n")
	if d.CurrentTrendScore != nil {
		quality := styles.IconError + " quality gate"
		if d.QualityPassed {
			quality = styles.IconSuccess + " quality gate"
		}
		b.WriteString(theme.TitleMuted.Render(fmt.Sprintf("trend score %s · %s", formatScore(d.CurrentTrendScore), quality)))
		b.WriteString("\n")
	}
	if d.HTMLURL != "" {
		b.WriteString(theme.TitleMuted.Render(d.HTMLURL))
		b.WriteString("\n")
	}
	if len(d.Topics) > 0 {
		b.WriteString(theme.TitleMuted.Render("topics: " + strings.Join(d.Topics, ", ")))
		b.WriteString("\n")
	}

	if h := renderHistory(d.TrendHistory); h != "" {
		b.WriteString("\n")
		b.WriteString(h)
		b.WriteString("\n")
	}

	for _, kind := range d.ContentKinds() {
		block := d.Content[kind]
		doc := markdown.Section(strings.ReplaceAll(kind, "_", " "), block.Markdown)
		if doc == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(m.renderer.Render(doc, width))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderHistory shows the most recent trend snapshots, newest first.
func renderHistory(points []api.TrendHistoryPoint) string {
	if len(points) == 0 {
		return ""
	}
	pts := append([]api.TrendHistoryPoint{}, points...)
	sort.SliceStable(pts, func(i, j int) bool {
		return pts[i].SnapshotAt.After(pts[j].SnapshotAt.Time)
	})
	if len(pts) > 7 {
		pts = pts[:7]
	}
	rows := make([]widgets.TableRow, 0, len(pts))
	for _, p := range pts {
		when := "–"
		if !p.SnapshotAt.IsZero() {
			when = p.SnapshotAt.Format("2006-01-02 15:04")
		}
		rows = append(rows, widgets.TableRow{Cells: []string{
			when,
			strconv.Itoa(p.StarsCount),
			formatDelta(p.StarsDelta24h),
			formatScore(p.ComputedTrendScore),
		}})
	}
	return widgets.NewTable([]widgets.TableColumn{
		{Header: "Snapshot", Width: 18},
		{Header: "Stars", Width: 9},
		{Header: "24h", Width: 7},
		{Header: "Score", Width: 7},
	}).WithRows(rows).Render()
}
