package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/go-go-golems/trendctl/pkg/tui"
	"github.com/go-go-golems/trendctl/pkg/tui/styles"
	"github.com/go-go-golems/trendctl/pkg/tui/widgets"
)

// PipelineModel shows the controller output for the current run: one of the
// step list, the message, or the error.
type PipelineModel struct {
	width  int
	height int

	out     controller.Output
	hasOut  bool
	timings map[string]*stepTiming
	runID   string
	spin    spinner.Model
	now     func() time.Time
}

type stepTiming struct {
	startedAt  time.Time
	finishedAt time.Time
}

func NewPipelineModel() PipelineModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.DefaultTheme().Secondary)
	return PipelineModel{
		timings: map[string]*stepTiming{},
		spin:    s,
		now:     time.Now,
	}
}

func (m PipelineModel) WithSize(width, height int) PipelineModel {
	m.width, m.height = width, height
	return m
}

func (m PipelineModel) Init() tea.Cmd { return m.spin.Tick }

func (m PipelineModel) Output() controller.Output { return m.out }

func (m PipelineModel) Update(msg tea.Msg) (PipelineModel, tea.Cmd) {
	switch v := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(v)
		return m, cmd
	case tui.RunUpdatedMsg:
		if v.Output.Version < m.out.Version {
			return m, nil
		}
		if id := v.Output.RunID(); id != "" && id != m.runID {
			m.runID = id
			m.timings = map[string]*stepTiming{}
		}
		if v.Output.Phase == controller.PhaseStarting {
			m.runID = ""
			m.timings = map[string]*stepTiming{}
		}
		m.out = v.Output
		m.hasOut = true
		return m, nil
	case tui.RunStepMsg:
		tr := v.Transition
		if m.runID != "" && tr.RunID != m.runID {
			return m, nil
		}
		t := m.timing(tr.Name)
		now := m.now()
		switch tr.To {
		case runstate.StepRunning:
			t.startedAt = now
			t.finishedAt = time.Time{}
		case runstate.StepSuccess, runstate.StepFailure:
			t.finishedAt = now
		}
		return m, nil
	}
	return m, nil
}

func (m PipelineModel) timing(name string) *stepTiming {
	t := m.timings[name]
	if t == nil {
		t = &stepTiming{}
		m.timings[name] = t
	}
	return t
}

func (m PipelineModel) View() string {
	theme := styles.DefaultTheme()
	if !m.hasOut {
		return widgets.NewBox("Pipeline").
			WithContent(theme.TitleMuted.Render("No pipeline run yet. Press [r] on the dashboard to start one.")).
			WithSize(m.width, 5).
			Render()
	}

	out := m.out
	title := "Pipeline"
	if id := out.RunID(); id != "" {
		title = fmt.Sprintf("Pipeline  run=%s", id)
	}
	right := fmt.Sprintf("%s  scope: %s", out.Phase, out.Scope.String())
	if out.Phase.InFlight() {
		right = m.spin.View() + " " + right
	}

	box := widgets.NewBox(title).WithTitleRight(right).WithContent(m.body()).WithSize(m.width, 0)
	if out.Display() == controller.DisplayError {
		box = box.WithAccent(theme.Error)
	}
	return box.Render()
}

func (m PipelineModel) body() string {
	theme := styles.DefaultTheme()
	out := m.out

	switch out.Display() {
	case controller.DisplayError:
		return theme.StatusDead.Render(styles.IconError + " " + out.Error)
	case controller.DisplayMessage:
		text := out.Message
		if out.ConsecutiveFailures > 0 {
			text = fmt.Sprintf("%s (status check failed %d× in a row, retrying)", text, out.ConsecutiveFailures)
		}
		return theme.TitleMuted.Render(text)
	case controller.DisplayNone:
		return theme.TitleMuted.Render("Idle.")
	}

	run := out.Run
	var b strings.Builder
	done, total := run.Progress()
	bar := widgets.NewProgressBar(done, total).WithWidth(maxInt(10, m.width/3)).WithStyle(theme.StatusRunning)
	b.WriteString(bar.Render())
	b.WriteString("\n\n")
	for i, st := range run.Steps {
		style := theme.StepStyle(st.Status)
		active := run.CurrentStepIndex != nil && *run.CurrentStepIndex == i
		marker := "  "
		if active {
			marker = theme.KeybindKey.Render("> ")
		}
		line := marker + style.Render(styles.StepIcon(st.Status)+" "+st.Name)
		if d := m.stepDuration(st); d != "" {
			line += "  " + theme.TitleMuted.Render(d)
		}
		b.WriteString(line)
		if i < len(run.Steps)-1 {
			b.WriteString("\n")
		}
	}
	if out.Message != "" && out.Phase == controller.PhaseCompleted {
		b.WriteString("\n\n")
		b.WriteString(theme.TitleMuted.Render(out.Message))
	}
	return b.String()
}

func (m PipelineModel) stepDuration(st runstate.Step) string {
	t := m.timings[st.Name]
	if t == nil || t.startedAt.IsZero() {
		return ""
	}
	end := t.finishedAt
	if end.IsZero() {
		if st.Status != runstate.StepRunning {
			return ""
		}
		end = m.now()
	}
	return formatDuration(end.Sub(t.startedAt))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	sec := d.Seconds()
	if sec < 10 {
		return fmt.Sprintf("%.1fs", sec)
	}
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", sec)
	}
	return d.Round(time.Second).String()
}
