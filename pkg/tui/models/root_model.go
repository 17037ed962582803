package models

import (
	"context"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/markdown"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/go-go-golems/trendctl/pkg/tui"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
	"github.com/go-go-golems/trendctl/pkg/tui/widgets"
	"github.com/pkg/errors"
)

type ViewID string

const (
	ViewDashboard ViewID = "dashboard"
	ViewPipeline  ViewID = "pipeline"
	ViewEvents    ViewID = "events"
	ViewRepo      ViewID = "repo"
)

var tabs = []ViewID{ViewDashboard, ViewPipeline, ViewEvents}

var tabLabels = []string{"Dashboard", "Pipeline", "Events"}

var errNoLoader = errors.New("no repository loader configured")

type RepoLoader func(ctx context.Context, id int) (api.RepositoryDetail, error)

type Options struct {
	// Publisher receives action requests (run, reset, refresh).
	Publisher message.Publisher
	LoadRepo  RepoLoader
	// SetQuery is called when the user changes the trending query.
	SetQuery func(api.TrendingQuery)
	Renderer *markdown.Renderer
	Query    api.TrendingQuery
	Scope    runstate.Scope
	Info     string
	Timeout  time.Duration
}

type RootModel struct {
	opts Options

	width  int
	height int

	active ViewID
	back   ViewID
	run    controller.Output

	dashboard DashboardModel
	pipeline  PipelineModel
	events    EventLogModel
	repo      RepoModel
}

func NewRootModel(opts Options) RootModel {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return RootModel{
		opts:      opts,
		active:    ViewDashboard,
		dashboard: NewDashboardModel(opts.Query, opts.Scope),
		pipeline:  NewPipelineModel(),
		events:    NewEventLogModel(),
		repo:      NewRepoModel(opts.Renderer),
	}
}

func (m RootModel) Init() tea.Cmd { return m.pipeline.Init() }

func (m RootModel) Active() ViewID { return m.active }

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		return m.resize(), nil
	case tea.KeyMsg:
		return m.updateKey(v)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.pipeline, cmd = m.pipeline.Update(v)
		return m, cmd
	case tui.RunUpdatedMsg:
		if v.Output.Version >= m.run.Version {
			m.run = v.Output
		}
		m.dashboard = m.dashboard.WithRun(v.Output)
		m.pipeline, _ = m.pipeline.Update(v)
		return m, nil
	case tui.RunStepMsg:
		m.pipeline, _ = m.pipeline.Update(v)
		return m, nil
	case tui.DashboardSnapshotMsg:
		m.dashboard = m.dashboard.WithSnapshot(v.Snapshot)
		return m, nil
	case tui.EventLogAppendMsg:
		m.events = m.events.Append(v.Entry)
		return m, nil
	case tui.ActionRequestMsg:
		if v.Request.Kind == tui.ActionRun {
			m.active = ViewPipeline
		}
		return m, m.publishAction(v.Request)
	case tui.QueryChangedMsg:
		if m.opts.SetQuery != nil {
			m.opts.SetQuery(v.Query)
		}
		return m, nil
	case tui.NavigateToRepoMsg:
		m.back = m.active
		m.active = ViewRepo
		m.repo = m.repo.Loading(v.ID, v.FullName)
		return m, m.loadRepo(v.ID)
	case tui.RepoDetailMsg:
		m.repo = m.repo.WithDetail(v)
		return m, nil
	case tui.NavigateBackMsg:
		m.active = m.back
		if m.active == "" || m.active == ViewRepo {
			m.active = ViewDashboard
		}
		return m, nil
	}
	return m, nil
}

func (m RootModel) updateKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.active == ViewEvents && m.events.Searching() {
		var cmd tea.Cmd
		m.events, cmd = m.events.Update(k)
		return m, cmd
	}

	switch k.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		m.active = tabs[(m.tabIndex()+1)%len(tabs)]
		return m, nil
	case "shift+tab":
		m.active = tabs[(m.tabIndex()+len(tabs)-1)%len(tabs)]
		return m, nil
	case "1", "2", "3":
		m.active = tabs[int(k.String()[0]-'1')]
		return m, nil
	}

	var cmd tea.Cmd
	switch m.active {
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(k)
	case ViewPipeline:
		m.pipeline, cmd = m.pipeline.Update(k)
	case ViewEvents:
		m.events, cmd = m.events.Update(k)
	case ViewRepo:
		m.repo, cmd = m.repo.Update(k)
	}
	return m, cmd
}

// tabIndex maps the repo view to the tab it was opened from.
func (m RootModel) tabIndex() int {
	active := m.active
	if active == ViewRepo {
		active = m.back
	}
	for i, t := range tabs {
		if t == active {
			return i
		}
	}
	return 0
}

func (m RootModel) publishAction(req tui.ActionRequest) tea.Cmd {
	pub := m.opts.Publisher
	return func() tea.Msg {
		if pub == nil {
			return nil
		}
		if err := tui.PublishAction(pub, req); err != nil {
			return tui.EventLogAppendMsg{Entry: tui.EventLogEntry{
				At:     time.Now(),
				Source: "tui",
				Level:  tui.LogLevelError,
				Text:   "publish action " + string(req.Kind) + ": " + err.Error(),
			}}
		}
		return nil
	}
}

func (m RootModel) loadRepo(id int) tea.Cmd {
	load := m.opts.LoadRepo
	timeout := m.opts.Timeout
	return func() tea.Msg {
		if load == nil {
			return tui.RepoDetailMsg{ID: id, Err: errNoLoader}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		d, err := load(ctx, id)
		if err != nil {
			return tui.RepoDetailMsg{ID: id, Err: err}
		}
		return tui.RepoDetailMsg{ID: id, Detail: &d}
	}
}

func (m RootModel) resize() RootModel {
	h := maxInt(10, m.height-6)
	m.dashboard = m.dashboard.WithSize(m.width, h)
	m.pipeline = m.pipeline.WithSize(m.width, h)
	m.events = m.events.WithSize(m.width, h)
	m.repo = m.repo.WithSize(m.width, h)
	return m
}

func (m RootModel) View() string {
	header := widgets.NewHeader("trendctl").
		WithTabs(tabLabels, m.tabIndex()).
		WithInfo(m.opts.Info).
		WithWidth(m.width)
	if icon, text, ok := runStatus(m.run); text != "" {
		header = header.WithStatus(icon, text, ok)
	}

	var body string
	switch m.active {
	case ViewPipeline:
		body = m.pipeline.View()
	case ViewEvents:
		body = m.events.View()
	case ViewRepo:
		body = m.repo.View()
	default:
		body = m.dashboard.View()
	}

	footer := widgets.NewFooter(m.keybinds()).WithWidth(m.width)
	if m.active == ViewDashboard {
		if level, text := m.dashboard.Notice(); text != "" {
			footer = footer.WithNotice(level, text)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, header.Render(), body, footer.Render())
}

func (m RootModel) keybinds() []widgets.Keybind {
	common := []widgets.Keybind{{Key: "tab", Label: "switch"}, {Key: "q", Label: "quit"}}
	switch m.active {
	case ViewDashboard:
		return append([]widgets.Keybind{
			{Key: "r", Label: "run"},
			{Key: "x", Label: "reset"},
			{Key: "space", Label: "scope"},
			{Key: "s", Label: "sort"},
			{Key: "enter", Label: "open"},
			{Key: "g", Label: "reload"},
		}, common...)
	case ViewRepo:
		return append([]widgets.Keybind{{Key: "esc", Label: "back"}}, common...)
	case ViewEvents:
		return append([]widgets.Keybind{{Key: "/", Label: "filter"}, {Key: "v", Label: "level"}}, common...)
	default:
		return common
	}
}

// runStatus summarizes the run phase for the header.
func runStatus(out controller.Output) (string, string, bool) {
	if out.Clearing {
		return styles.IconRunning, "clearing data", true
	}
	switch out.Phase {
	case controller.PhaseStarting:
		return styles.IconRunning, "starting run", true
	case controller.PhasePolling:
		if out.Run != nil {
			done, total := out.Run.Progress()
			if st, ok := out.Run.ActiveStep(); ok {
				return styles.IconRunning, st.Name + " " + progressLabel(done, total), true
			}
		}
		return styles.IconRunning, "run in progress", true
	case controller.PhaseCompleted:
		return styles.IconSuccess, "last run succeeded", true
	case controller.PhaseFailed:
		return styles.IconError, "last run failed", false
	}
	if out.Error != "" {
		return styles.IconError, "error", false
	}
	return "", "", true
}

func progressLabel(done, total int) string {
	return "(" + strconv.Itoa(done) + "/" + strconv.Itoa(total) + ")"
}
