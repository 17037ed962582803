package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type chanSender struct {
	ch chan tea.Msg
}

func (s *chanSender) Send(msg tea.Msg) { s.ch <- msg }

func startBus(t *testing.T, register func(b *Bus)) *Bus {
	t.Helper()
	b, err := NewInMemoryBus()
	require.NoError(t, err)
	register(b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-b.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("bus did not start")
	}
	return b
}

// collect reads messages until pred has matched want times or the deadline passes.
func collect(t *testing.T, ch <-chan tea.Msg, pred func(tea.Msg) bool, want int) []tea.Msg {
	t.Helper()
	var got []tea.Msg
	deadline := time.After(5 * time.Second)
	for len(got) < want {
		select {
		case m := <-ch:
			if pred(m) {
				got = append(got, m)
			}
		case <-deadline:
			t.Fatalf("got %d of %d messages", len(got), want)
		}
	}
	return got
}

func TestRunHooksReachTheProgram(t *testing.T) {
	sender := &chanSender{ch: make(chan tea.Msg, 64)}
	b := startBus(t, func(b *Bus) {
		RegisterDomainToUITransformer(b)
		RegisterUIForwarder(b, sender)
	})

	var refreshed sync.WaitGroup
	refreshed.Add(1)
	hooks := RunHooks(b.Publisher, refreshed.Done)

	run := &runstate.RunState{
		RunID:  "abc",
		Status: runstate.RunSuccess,
		Steps:  []runstate.Step{{Name: "Classify", Status: runstate.StepSuccess}},
	}
	hooks.OnStep(runstate.StepTransition{RunID: "abc", Index: 0, Name: "Classify", From: runstate.StepRunning, To: runstate.StepSuccess})
	hooks.OnUpdate(controller.Output{Version: 3, Phase: controller.PhaseCompleted, Run: run, Message: controller.MessageFinished})
	hooks.OnRefresh()
	refreshed.Wait()

	var (
		step    RunStepMsg
		upd     RunUpdatedMsg
		entries []EventLogEntry
		seen    int
	)
	deadline := time.After(5 * time.Second)
	for seen < 2 || len(entries) < 3 {
		select {
		case m := <-sender.ch:
			switch v := m.(type) {
			case RunStepMsg:
				step = v
				seen++
			case RunUpdatedMsg:
				upd = v
				seen++
			case EventLogAppendMsg:
				entries = append(entries, v.Entry)
			}
		case <-deadline:
			t.Fatalf("got %d run messages and %d log entries", seen, len(entries))
		}
	}

	require.Equal(t, "Classify", step.Transition.Name)
	require.Equal(t, runstate.StepSuccess, step.Transition.To)
	require.Equal(t, controller.PhaseCompleted, upd.Output.Phase)
	require.Equal(t, "abc", upd.Output.RunID())
	require.Equal(t, uint64(3), upd.Output.Version)

	texts := map[string]LogLevel{}
	for _, e := range entries {
		texts[e.Text] = e.Level
	}
	require.Equal(t, LogLevelInfo, texts["Classify: running -> success"])
	require.Equal(t, LogLevelInfo, texts["run abc: "+controller.MessageFinished])
	require.Equal(t, LogLevelDebug, texts["refreshing after completed run"])
}

type fakeRunController struct {
	mu       sync.Mutex
	scopes   []runstate.Scope
	startErr error
	clears   int
	clearErr error
}

func (f *fakeRunController) Start(ctx context.Context, scope runstate.Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scopes = append(f.scopes, scope)
	return f.startErr
}

func (f *fakeRunController) ClearData(ctx context.Context) (api.ClearResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return api.ClearResult{Deleted: 4}, f.clearErr
}

type countingRefresher struct {
	mu sync.Mutex
	n  int
}

func (r *countingRefresher) Trigger() {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
}

func TestActionRunner(t *testing.T) {
	sender := &chanSender{ch: make(chan tea.Msg, 64)}
	ctrl := &fakeRunController{}
	refresher := &countingRefresher{}
	b := startBus(t, func(b *Bus) {
		RegisterDomainToUITransformer(b)
		RegisterUIForwarder(b, sender)
		RegisterUIActionRunner(b, ActionDeps{Controller: ctrl, Dashboard: refresher, Timeout: time.Second})
	})
	isEntry := func(m tea.Msg) bool {
		_, ok := m.(EventLogAppendMsg)
		return ok
	}

	require.NoError(t, PublishAction(b.Publisher, ActionRequest{Kind: ActionRun, Scope: []string{"mcp-tooling", "ai-ml", " "}}))
	e := collect(t, sender.ch, isEntry, 1)[0].(EventLogAppendMsg).Entry
	require.Equal(t, "action ok: run (ai-ml,mcp-tooling)", e.Text)
	require.Equal(t, "action", e.Source)
	require.Equal(t, []runstate.Scope{{"ai-ml", "mcp-tooling"}}, ctrl.scopes)

	ctrl.mu.Lock()
	ctrl.startErr = errors.WithStack(controller.ErrRunInFlight)
	ctrl.mu.Unlock()
	require.NoError(t, PublishAction(b.Publisher, ActionRequest{Kind: ActionRun}))
	e = collect(t, sender.ch, isEntry, 1)[0].(EventLogAppendMsg).Entry
	require.Equal(t, LogLevelWarn, e.Level)
	require.Contains(t, e.Text, "action rejected: run")

	require.NoError(t, PublishAction(b.Publisher, ActionRequest{Kind: ActionReset}))
	e = collect(t, sender.ch, isEntry, 1)[0].(EventLogAppendMsg).Entry
	require.Equal(t, "action ok: reset (4 deleted)", e.Text)

	ctrl.mu.Lock()
	ctrl.clearErr = errors.New("db locked")
	ctrl.mu.Unlock()
	require.NoError(t, PublishAction(b.Publisher, ActionRequest{Kind: ActionReset}))
	e = collect(t, sender.ch, isEntry, 1)[0].(EventLogAppendMsg).Entry
	require.Equal(t, LogLevelError, e.Level)
	require.Equal(t, "action failed: reset: db locked", e.Text)

	require.NoError(t, PublishAction(b.Publisher, ActionRequest{Kind: ActionRefresh}))
	collect(t, sender.ch, isEntry, 1)
	refresher.mu.Lock()
	require.Equal(t, 1, refresher.n)
	refresher.mu.Unlock()

	require.Error(t, PublishAction(b.Publisher, ActionRequest{}))
}

func TestDescribeUpdate(t *testing.T) {
	_, _, ok := describeUpdate(controller.Output{
		Phase: controller.PhasePolling,
		Run:   &runstate.RunState{RunID: "abc", Steps: []runstate.Step{{Name: "a", Status: runstate.StepRunning}}},
	})
	require.False(t, ok)

	level, text, ok := describeUpdate(controller.Output{Phase: controller.PhaseFailed, Run: &runstate.RunState{RunID: "abc"}, Error: "boom"})
	require.True(t, ok)
	require.Equal(t, LogLevelError, level)
	require.Equal(t, "run abc failed: boom", text)

	level, text, ok = describeUpdate(controller.Output{Phase: controller.PhasePolling, ConsecutiveFailures: 2})
	require.True(t, ok)
	require.Equal(t, LogLevelDebug, level)
	require.Contains(t, text, "2 in a row")

	_, text, ok = describeUpdate(controller.Output{Phase: controller.PhaseStarting})
	require.True(t, ok)
	require.Equal(t, "starting run (all categories)", text)

	_, _, ok = describeUpdate(controller.Output{Phase: controller.PhaseIdle})
	require.False(t, ok)
}

func TestDescribeStep(t *testing.T) {
	level, text := describeStep(runstate.StepTransition{Name: "Ingest trending", To: runstate.StepRunning})
	require.Equal(t, LogLevelInfo, level)
	require.Equal(t, "Ingest trending: running", text)

	level, _ = describeStep(runstate.StepTransition{Name: "Classify", From: runstate.StepRunning, To: runstate.StepFailure})
	require.Equal(t, LogLevelError, level)
}

func TestEnvelopeDecode(t *testing.T) {
	env, err := NewEnvelope(DomainTypeRunRefresh, RunRefresh{At: time.Unix(10, 0).UTC()})
	require.NoError(t, err)
	b, err := env.MarshalJSONBytes()
	require.NoError(t, err)

	got, err := decodeEnvelope(b)
	require.NoError(t, err)
	var ev RunRefresh
	require.NoError(t, got.Decode(&ev))
	require.True(t, ev.At.Equal(time.Unix(10, 0)))

	empty, err := NewEnvelope(DomainTypeRunRefresh, nil)
	require.NoError(t, err)
	require.Error(t, empty.Decode(&ev))

	_, err = NewEnvelope("", nil)
	require.Error(t, err)
	_, err = decodeEnvelope([]byte("{"))
	require.Error(t, err)
}
