package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/go-go-golems/trendctl/pkg/tui"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
	"github.com/go-go-golems/trendctl/pkg/tui/widgets"
)

type dashboardFocus string

const (
	focusCategories dashboardFocus = "categories"
	focusTrending   dashboardFocus = "trending"
)

type DashboardModel struct {
	width  int
	height int

	last  *tui.DashboardSnapshot
	run   controller.Output
	query api.TrendingQuery
	scope runstate.Scope

	focus        dashboardFocus
	catCursor    int
	repoCursor   int
	confirmReset bool
	notice       string

	now func() time.Time
}

func NewDashboardModel(query api.TrendingQuery, scope runstate.Scope) DashboardModel {
	if query.SortBy == "" {
		query.SortBy = api.SortByScore
	}
	if query.Page <= 0 {
		query.Page = 1
	}
	return DashboardModel{
		query: query,
		scope: scope.Normalize(),
		focus: focusTrending,
		now:   time.Now,
	}
}

func (m DashboardModel) WithSize(width, height int) DashboardModel {
	m.width, m.height = width, height
	return m
}

func (m DashboardModel) WithSnapshot(s tui.DashboardSnapshot) DashboardModel {
	m.last = &s
	m.catCursor = clampInt(m.catCursor, 0, maxInt(0, len(s.Categories)-1))
	if s.Trending != nil {
		m.repoCursor = clampInt(m.repoCursor, 0, maxInt(0, len(s.Trending.Items)-1))
	}
	return m
}

func (m DashboardModel) WithRun(out controller.Output) DashboardModel {
	if out.Version < m.run.Version {
		return m
	}
	m.run = out
	return m
}

func (m DashboardModel) Scope() runstate.Scope { return m.scope }

func (m DashboardModel) Query() api.TrendingQuery { return m.query }

// busy reports whether run and reset are unavailable.
func (m DashboardModel) busy() bool {
	return m.run.Phase.InFlight() || m.run.Clearing
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	key := v.String()

	if m.confirmReset {
		m.confirmReset = false
		if key == "y" || key == "x" {
			m.notice = ""
			return m, emit(tui.ActionRequestMsg{Request: tui.ActionRequest{Kind: tui.ActionReset}})
		}
		m.notice = "Reset cancelled."
		return m, nil
	}
	m.notice = ""

	switch key {
	case "left", "h":
		m.focus = focusCategories
	case "right", "l":
		m.focus = focusTrending
	case "up", "k":
		m = m.moveCursor(-1)
	case "down", "j":
		m = m.moveCursor(1)
	case " ":
		if slug, ok := m.selectedCategory(); ok {
			m.scope = m.scope.Toggle(slug)
		}
	case "a":
		m.scope = nil
	case "f":
		slug, ok := m.selectedCategory()
		if !ok {
			return m, nil
		}
		if m.query.Category == slug {
			slug = ""
		}
		m.query.Category = slug
		m.query.Page = 1
		m.repoCursor = 0
		return m, m.queryChanged()
	case "s":
		m.query.SortBy = m.query.SortBy.Next()
		m.query.Page = 1
		m.repoCursor = 0
		return m, m.queryChanged()
	case "n":
		if m.last == nil || m.last.Trending == nil || m.query.Page*maxInt(1, m.last.Trending.PageSize) >= m.last.Trending.Total {
			return m, nil
		}
		m.query.Page++
		m.repoCursor = 0
		return m, m.queryChanged()
	case "p":
		if m.query.Page <= 1 {
			return m, nil
		}
		m.query.Page--
		m.repoCursor = 0
		return m, m.queryChanged()
	case "enter":
		if repo, ok := m.selectedRepo(); ok {
			return m, emit(tui.NavigateToRepoMsg{ID: repo.ID, FullName: repo.FullName})
		}
	case "g":
		return m, emit(tui.ActionRequestMsg{Request: tui.ActionRequest{Kind: tui.ActionRefresh}})
	case "r":
		if m.busy() {
			m.notice = "A run or reset is already in progress."
			return m, nil
		}
		return m, emit(tui.ActionRequestMsg{Request: tui.ActionRequest{Kind: tui.ActionRun, Scope: append([]string{}, m.scope...)}})
	case "x":
		if m.busy() {
			m.notice = "A run or reset is already in progress."
			return m, nil
		}
		m.confirmReset = true
		m.notice = "Delete all ingested data? Press [y] to confirm."
	}
	return m, nil
}

func (m DashboardModel) queryChanged() tea.Cmd {
	return emit(tui.QueryChangedMsg{Query: m.query})
}

func (m DashboardModel) moveCursor(delta int) DashboardModel {
	if m.last == nil {
		return m
	}
	switch m.focus {
	case focusCategories:
		m.catCursor = clampInt(m.catCursor+delta, 0, maxInt(0, len(m.last.Categories)-1))
	default:
		if m.last.Trending != nil {
			m.repoCursor = clampInt(m.repoCursor+delta, 0, maxInt(0, len(m.last.Trending.Items)-1))
		}
	}
	return m
}

func (m DashboardModel) selectedCategory() (string, bool) {
	if m.last == nil || len(m.last.Categories) == 0 {
		return "", false
	}
	return m.last.Categories[clampInt(m.catCursor, 0, len(m.last.Categories)-1)].Slug, true
}

func (m DashboardModel) selectedRepo() (api.TrendingRepo, bool) {
	if m.last == nil || m.last.Trending == nil || len(m.last.Trending.Items) == 0 {
		return api.TrendingRepo{}, false
	}
	return m.last.Trending.Items[clampInt(m.repoCursor, 0, len(m.last.Trending.Items)-1)], true
}

// Notice is the one-line hint the root shows in the footer.
func (m DashboardModel) Notice() (string, string) {
	if m.confirmReset {
		return "warn", m.notice
	}
	if m.notice != "" {
		return "info", m.notice
	}
	return "", ""
}

func (m DashboardModel) View() string {
	theme := styles.DefaultTheme()
	if m.last == nil {
		return theme.TitleMuted.Render("Loading dashboard…")
	}

	sections := []string{m.renderStats(), m.renderRunSummary()}

	catWidth := clampInt(m.width/4, 24, 36)
	tableWidth := maxInt(40, m.width-catWidth)
	bodyHeight := maxInt(8, m.height-14)
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderCategories(catWidth, bodyHeight),
		m.renderTrending(tableWidth, bodyHeight),
	)
	sections = append(sections, body)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderStats() string {
	theme := styles.DefaultTheme()
	s := m.last.Stats
	if s == nil {
		msg := "stats unavailable"
		if e := m.last.Errors["stats"]; e != "" {
			msg = "stats unavailable: " + e
		}
		return widgets.NewBox("Stats").WithContent(theme.StatusDead.Render(msg)).WithSize(m.width, 0).Render()
	}

	cell := func(label string, n int) string {
		return theme.Title.Render(strconv.Itoa(n)) + " " + theme.TitleMuted.Render(label)
	}
	parts := []string{
		cell("tracked", s.TotalTrackedRepos),
		cell("passing quality", s.ReposPassingQuality),
		cell("added today", s.ReposAddedToday),
		cell("written today", s.ContentGeneratedToday),
	}
	langs := make([]string, 0, 3)
	for i, l := range s.TopLanguages {
		if i == 3 {
			break
		}
		langs = append(langs, fmt.Sprintf("%s %d", l.Language, l.Count))
	}
	if len(langs) > 0 {
		parts = append(parts, theme.TitleMuted.Render(strings.Join(langs, " · ")))
	}
	return widgets.NewBox("Stats").
		WithTitleRight("last ingest " + s.LastIngestionAt.Ago(m.now())).
		WithContent(strings.Join(parts, "   ")).
		WithSize(m.width, 0).
		Render()
}

func (m DashboardModel) renderRunSummary() string {
	theme := styles.DefaultTheme()
	out := m.run

	var line string
	switch out.Display() {
	case controller.DisplayError:
		line = theme.StatusDead.Render(styles.IconError + " " + out.Error)
	case controller.DisplayProgress:
		done, total := out.Run.Progress()
		line = widgets.NewProgressBar(done, total).WithWidth(20).WithStyle(theme.StatusRunning).Render()
		if st, ok := out.Run.ActiveStep(); ok && out.Phase.InFlight() {
			line += "  " + theme.StepStyle(st.Status).Render(styles.StepIcon(st.Status)+" "+st.Name)
		} else if out.Message != "" {
			line += "  " + theme.TitleMuted.Render(out.Message)
		}
	case controller.DisplayMessage:
		line = theme.TitleMuted.Render(out.Message)
	default:
		line = theme.TitleMuted.Render("No run yet.")
	}
	if out.Clearing {
		line = theme.TitleMuted.Render("Clearing data…")
	}

	right := "[r] run  [x] reset"
	if m.busy() {
		right = "run in progress"
	}
	return widgets.NewBox("Run  scope: " + m.scope.String()).
		WithTitleRight(right).
		WithContent(line).
		WithSize(m.width, 0).
		Render()
}

func (m DashboardModel) renderCategories(width, height int) string {
	theme := styles.DefaultTheme()
	cats := m.last.Categories

	lines := make([]string, 0, len(cats))
	if len(cats) == 0 {
		msg := "(no categories)"
		if e := m.last.Errors["categories"]; e != "" {
			msg = e
		}
		lines = append(lines, theme.TitleMuted.Render(msg))
	}
	for i, c := range cats {
		selected := m.scope.Contains(c.Slug)
		icon := styles.ScopeIcon(selected)
		iconStyle := theme.StatusPending
		if selected {
			iconStyle = theme.StatusRunning
		}
		name := c.Name
		if name == "" {
			name = c.Slug
		}
		if m.query.Category == c.Slug {
			name += " (filter)"
		}
		text := fmt.Sprintf("%s %s", name, theme.TitleMuted.Render(strconv.Itoa(c.RepoCount)))
		cursor := "  "
		if m.focus == focusCategories && i == m.catCursor {
			cursor = theme.KeybindKey.Render("> ")
		}
		lines = append(lines, cursor+iconStyle.Render(icon)+" "+text)
	}

	title := "Categories"
	if m.focus == focusCategories {
		title = "▸ Categories"
	}
	return widgets.NewBox(title).
		WithTitleRight("[space] [a] [f]").
		WithContent(strings.Join(lines, "\n")).
		WithSize(width, height).
		Render()
}

func (m DashboardModel) renderTrending(width, height int) string {
	theme := styles.DefaultTheme()
	page := m.last.Trending

	title := "Trending"
	if m.focus == focusTrending {
		title = "▸ Trending"
	}
	right := "sort: " + m.query.SortBy.Label()
	if m.query.Category != "" {
		right += "  category: " + m.query.Category
	}

	if page == nil {
		msg := "trending unavailable"
		if e := m.last.Errors["trending"]; e != "" {
			msg = e
		}
		return widgets.NewBox(title).WithTitleRight(right).
			WithContent(theme.StatusDead.Render(msg)).WithSize(width, height).Render()
	}

	pages := 1
	if page.PageSize > 0 && page.Total > 0 {
		pages = (page.Total + page.PageSize - 1) / page.PageSize
	}
	right += fmt.Sprintf("  page %d/%d", maxInt(1, page.Page), pages)

	nameWidth := maxInt(16, width-58)
	cols := []widgets.TableColumn{
		{Header: "Repository", Width: nameWidth},
		{Header: "Stars", Width: 9, Align: lipgloss.Right},
		{Header: "24h", Width: 7, Align: lipgloss.Right},
		{Header: "Score", Width: 7, Align: lipgloss.Right},
		{Header: "Categories", Width: 28},
	}
	rows := make([]widgets.TableRow, 0, len(page.Items))
	for _, r := range page.Items {
		rows = append(rows, widgets.TableRow{
			Icon: styles.IconStar,
			Cells: []string{
				r.FullName,
				strconv.Itoa(r.StarsCount),
				formatDelta(r.StarsDelta24h),
				formatScore(r.CurrentTrendScore),
				joinCategories(r.Categories),
			},
		})
	}
	cursor := -1
	if m.focus == focusTrending {
		cursor = m.repoCursor
	}
	table := widgets.NewTable(cols).WithRows(rows).WithCursor(cursor).WithSize(width-2, height-3)
	return widgets.NewBox(title).WithTitleRight(right).WithContent(table.Render()).WithSize(width, height).Render()
}

func formatDelta(d *int) string {
	if d == nil {
		return "–"
	}
	if *d > 0 {
		return "+" + strconv.Itoa(*d)
	}
	return strconv.Itoa(*d)
}

func formatScore(s *float64) string {
	if s == nil {
		return "–"
	}
	return strconv.FormatFloat(*s, 'f', 1, 64)
}

func joinCategories(cats []api.CategoryRef) string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Slug)
	}
	return strings.Join(names, ",")
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
