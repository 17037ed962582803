package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu sync.Mutex

	start       api.StartResult
	startErr    error
	startScopes []runstate.Scope

	// query is called with the 1-based call number.
	query      func(ctx context.Context, call int) (runstate.RunState, error)
	queryCalls int

	clear      api.ClearResult
	clearErr   error
	clearCalls int
}

var _ Runner = (*fakeRunner)(nil)

func (f *fakeRunner) StartRun(ctx context.Context, scope runstate.Scope) (api.StartResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startScopes = append(f.startScopes, scope)
	return f.start, f.startErr
}

func (f *fakeRunner) QueryStatus(ctx context.Context, runID string) (runstate.RunState, error) {
	f.mu.Lock()
	f.queryCalls++
	n := f.queryCalls
	q := f.query
	f.mu.Unlock()
	if q == nil {
		return runstate.RunState{}, errors.New("no status scripted")
	}
	return q(ctx, n)
}

func (f *fakeRunner) ClearData(ctx context.Context) (api.ClearResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearCalls++
	return f.clear, f.clearErr
}

func (f *fakeRunner) QueryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queryCalls
}

func (f *fakeRunner) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.startScopes)
}

// script replays replies in order and repeats the last one.
func script(replies ...reply) func(ctx context.Context, call int) (runstate.RunState, error) {
	return func(ctx context.Context, call int) (runstate.RunState, error) {
		r := replies[len(replies)-1]
		if call <= len(replies) {
			r = replies[call-1]
		}
		return r.st, r.err
	}
}

type reply struct {
	st  runstate.RunState
	err error
}

func ok(st runstate.RunState) reply { return reply{st: st} }
func fail(msg string) reply         { return reply{err: &api.RequestFailure{Op: api.OpQueryStatus, Reason: msg}} }

type recorder struct {
	mu       sync.Mutex
	updates  []Output
	steps    []runstate.StepTransition
	refreshN atomic.Int32
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnUpdate: func(o Output) {
			r.mu.Lock()
			r.updates = append(r.updates, o)
			r.mu.Unlock()
		},
		OnStep: func(tr runstate.StepTransition) {
			r.mu.Lock()
			r.steps = append(r.steps, tr)
			r.mu.Unlock()
		},
		OnRefresh: func() { r.refreshN.Add(1) },
	}
}

func (r *recorder) Updates() []Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Output{}, r.updates...)
}

func (r *recorder) Steps() []runstate.StepTransition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]runstate.StepTransition{}, r.steps...)
}

func newController(t *testing.T, f *fakeRunner, rec *recorder, interval time.Duration, maxFailures int) *Controller {
	t.Helper()
	c, err := New(Options{Client: f, Interval: interval, MaxPollFailures: maxFailures, Hooks: rec.hooks()})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func scrapeRunning() runstate.RunState {
	return runstate.RunState{
		RunID:            "abc",
		Status:           runstate.RunRunning,
		CurrentStepIndex: runstate.IntPtr(0),
		Steps: []runstate.Step{
			{Name: "scrape", Status: runstate.StepRunning},
			{Name: "score", Status: runstate.StepPending},
		},
	}
}

func scoreRunning() runstate.RunState {
	return runstate.RunState{
		RunID:            "abc",
		Status:           runstate.RunRunning,
		CurrentStepIndex: runstate.IntPtr(1),
		Steps: []runstate.Step{
			{Name: "scrape", Status: runstate.StepSuccess},
			{Name: "score", Status: runstate.StepRunning},
		},
	}
}

func allSucceeded() runstate.RunState {
	return runstate.RunState{
		RunID:  "abc",
		Status: runstate.RunSuccess,
		Steps: []runstate.Step{
			{Name: "scrape", Status: runstate.StepSuccess},
			{Name: "score", Status: runstate.StepSuccess},
		},
	}
}

func failedWith(msg string) runstate.RunState {
	return runstate.RunState{
		RunID:            "abc",
		Status:           runstate.RunFailure,
		CurrentStepIndex: runstate.IntPtr(1),
		Steps: []runstate.Step{
			{Name: "scrape", Status: runstate.StepSuccess},
			{Name: "score", Status: runstate.StepFailure},
		},
		Error: msg,
	}
}

func waitTerminal(t *testing.T, c *Controller) Output {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out, err := c.Wait(ctx)
	require.NoError(t, err)
	return out
}

func TestController_ScrapeScoreScenario(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc", Message: "Pipeline started."},
		query: script(ok(scrapeRunning()), ok(allSucceeded())),
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), runstate.Scope{}))
	// The first query runs before Start returns.
	require.GreaterOrEqual(t, f.QueryCalls(), 1)

	out := waitTerminal(t, c)
	require.Equal(t, PhaseCompleted, out.Phase)
	require.NotNil(t, out.Run)
	require.Equal(t, runstate.RunSuccess, out.Run.Status)
	require.Equal(t, MessageFinished, out.Message)
	require.Empty(t, out.Error)
	require.Equal(t, DisplayProgress, out.Display())
	require.EqualValues(t, 1, rec.refreshN.Load())
	require.False(t, c.Polling())
	require.Equal(t, 2, f.QueryCalls())

	require.Equal(t, []runstate.StepTransition{
		{RunID: "abc", Index: 0, Name: "scrape", To: runstate.StepRunning},
		{RunID: "abc", Index: 0, Name: "scrape", From: runstate.StepRunning, To: runstate.StepSuccess},
		{RunID: "abc", Index: 1, Name: "score", From: runstate.StepPending, To: runstate.StepSuccess},
	}, rec.Steps())

	phases := []Phase{}
	for _, u := range rec.Updates() {
		phases = append(phases, u.Phase)
	}
	require.Equal(t, []Phase{PhaseStarting, PhasePolling, PhasePolling, PhaseCompleted}, phases)

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 2, f.QueryCalls())
	require.EqualValues(t, 1, rec.refreshN.Load())
}

func TestController_NotStartedNeverPolls(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: false, Message: "Pipeline is disabled."},
		query: script(ok(scrapeRunning())),
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))

	out := c.Snapshot()
	require.Equal(t, PhaseIdle, out.Phase)
	require.Equal(t, "Pipeline is disabled.", out.Message)
	require.Equal(t, DisplayMessage, out.Display())
	require.Zero(t, f.QueryCalls())
	require.Zero(t, c.sched.Ticks())
	require.False(t, c.Polling())
	require.Zero(t, rec.refreshN.Load())
}

func TestController_NotStartedDefaultsMessage(t *testing.T) {
	f := &fakeRunner{start: api.StartResult{Started: true}}
	c := newController(t, f, &recorder{}, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	require.Equal(t, MessageNotStarted, c.Snapshot().Message)
	require.Zero(t, c.sched.Ticks())
}

func TestController_StartFailureIsSurfaced(t *testing.T) {
	f := &fakeRunner{startErr: &api.RequestFailure{Op: api.OpStartRun, StatusCode: 503, Reason: "broker unavailable"}}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 0)

	err := c.Start(context.Background(), nil)
	require.Error(t, err)
	require.True(t, api.IsRequestFailure(err))

	out := c.Snapshot()
	require.Equal(t, PhaseIdle, out.Phase)
	require.Equal(t, "broker unavailable", out.Error)
	require.Equal(t, DisplayError, out.Display())
	require.Zero(t, f.QueryCalls())

	// Recoverable: a new start is accepted.
	f.mu.Lock()
	f.startErr = nil
	f.start = api.StartResult{Started: false, Message: "nope"}
	f.mu.Unlock()
	require.NoError(t, c.Start(context.Background(), nil))
	require.Empty(t, c.Snapshot().Error)
}

func TestController_RunFailureSurfacesErrorVerbatim(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(ok(scrapeRunning()), ok(failedWith("boom"))),
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	out := waitTerminal(t, c)

	require.Equal(t, PhaseFailed, out.Phase)
	require.Equal(t, "boom", out.Error)
	require.Equal(t, DisplayError, out.Display())
	require.Zero(t, rec.refreshN.Load())
	require.False(t, c.Polling())
}

func TestController_RunFailureWithoutMessage(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(ok(failedWith(""))),
	}
	c := newController(t, f, &recorder{}, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	out := waitTerminal(t, c)
	require.Equal(t, ErrorRunFailed, out.Error)
}

func TestController_TransientFailuresKeepPolling(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(fail("e1"), fail("e2"), fail("e3"), fail("e4"), fail("e5"), ok(scrapeRunning())),
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	require.Equal(t, PhasePolling, c.Phase())

	require.Eventually(t, func() bool { return f.QueryCalls() >= 8 }, 5*time.Second, time.Millisecond)

	out := c.Snapshot()
	require.Equal(t, PhasePolling, out.Phase)
	require.Empty(t, out.Error)
	require.NotNil(t, out.Run)
	require.Zero(t, out.ConsecutiveFailures)
	require.True(t, c.Polling())
	for _, u := range rec.Updates() {
		require.Empty(t, u.Error)
	}
}

func TestController_AllFailuresStayPollingWhenUnbounded(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(fail("down")),
	}
	c := newController(t, f, &recorder{}, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	require.Eventually(t, func() bool { return f.QueryCalls() >= 10 }, 5*time.Second, time.Millisecond)

	out := c.Snapshot()
	require.Equal(t, PhasePolling, out.Phase)
	require.Empty(t, out.Error)
	require.Equal(t, MessageStarted, out.Message)
	require.Equal(t, DisplayMessage, out.Display())
	require.GreaterOrEqual(t, out.ConsecutiveFailures, 9)
}

func TestController_MaxPollFailuresCeiling(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(fail("down")),
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 3)

	require.NoError(t, c.Start(context.Background(), nil))
	out := waitTerminal(t, c)

	require.Equal(t, PhaseFailed, out.Phase)
	require.Contains(t, out.Error, "3 failed status checks")
	require.Equal(t, 3, f.QueryCalls())
	require.Zero(t, rec.refreshN.Load())
}

func TestController_GuardsWhileInFlight(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(ok(scrapeRunning())),
	}
	c := newController(t, f, &recorder{}, time.Hour, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	require.Equal(t, PhasePolling, c.Phase())

	require.ErrorIs(t, c.Start(context.Background(), runstate.Scope{"ai-ml"}), ErrRunInFlight)
	require.Equal(t, 1, f.StartCalls())

	_, err := c.ClearData(context.Background())
	require.ErrorIs(t, err, ErrRunInFlight)
	require.Zero(t, f.clearCalls)
}

func TestController_GuardWhileStarting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	f := &blockingStart{entered: entered, release: release}
	c, err := New(Options{Client: f, Interval: time.Hour})
	require.NoError(t, err)
	defer c.Close()

	errc := make(chan error, 1)
	go func() { errc <- c.Start(context.Background(), nil) }()
	<-entered
	require.Equal(t, PhaseStarting, c.Phase())
	require.ErrorIs(t, c.Start(context.Background(), nil), ErrRunInFlight)
	_, err = c.ClearData(context.Background())
	require.ErrorIs(t, err, ErrRunInFlight)

	close(release)
	require.NoError(t, <-errc)
	require.Equal(t, PhaseIdle, c.Phase())
}

type blockingStart struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStart) StartRun(ctx context.Context, scope runstate.Scope) (api.StartResult, error) {
	close(b.entered)
	<-b.release
	return api.StartResult{Started: false, Message: "later"}, nil
}

func (b *blockingStart) QueryStatus(ctx context.Context, runID string) (runstate.RunState, error) {
	return runstate.RunState{}, errors.New("unexpected")
}

func (b *blockingStart) ClearData(ctx context.Context) (api.ClearResult, error) {
	return api.ClearResult{}, errors.New("unexpected")
}

func TestController_TeardownIgnoresInFlightResponse(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: func(ctx context.Context, call int) (runstate.RunState, error) {
			if call == 1 {
				return scrapeRunning(), nil
			}
			if call == 2 {
				close(entered)
				<-release
				return allSucceeded(), nil
			}
			return scrapeRunning(), nil
		},
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	<-entered

	before := len(rec.Updates())
	beforeSteps := len(rec.Steps())
	c.Close()
	close(release)

	time.Sleep(30 * time.Millisecond)
	require.Len(t, rec.Updates(), before)
	require.Len(t, rec.Steps(), beforeSteps)
	require.Zero(t, rec.refreshN.Load())
	require.Equal(t, 2, f.QueryCalls())

	out := c.Snapshot()
	require.Equal(t, PhaseIdle, out.Phase)
	require.Nil(t, out.Run)
	require.False(t, c.Polling())

	require.ErrorIs(t, c.Start(context.Background(), nil), ErrClosed)
	_, err := c.ClearData(context.Background())
	require.ErrorIs(t, err, ErrClosed)
	c.Close()
}

func TestController_StaleResponsesAreDropped(t *testing.T) {
	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: func(ctx context.Context, call int) (runstate.RunState, error) {
			switch call {
			case 1:
				return scrapeRunning(), nil
			case 2:
				close(firstEntered)
				<-releaseFirst
				return scrapeRunning(), nil
			case 3:
				return scoreRunning(), nil
			default:
				return allSucceeded(), nil
			}
		},
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Hour, 0)
	require.NoError(t, c.Start(context.Background(), nil))

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	// Two overlapping queries; the older one answers last.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.poll(context.Background(), gen, "abc")
	}()
	<-firstEntered
	require.NoError(t, c.poll(context.Background(), gen, "abc"))
	close(releaseFirst)
	wg.Wait()

	out := c.Snapshot()
	require.Equal(t, PhasePolling, out.Phase)
	require.Equal(t, runstate.StepSuccess, out.Run.Steps[0].Status)
	require.Equal(t, runstate.StepRunning, out.Run.Steps[1].Status)

	require.NoError(t, c.poll(context.Background(), gen, "abc"))
	require.Equal(t, PhaseCompleted, c.Phase())

	// Late running responses after success change nothing.
	require.NoError(t, c.poll(context.Background(), gen, "abc"))
	require.Equal(t, PhaseCompleted, c.Phase())
	require.EqualValues(t, 1, rec.refreshN.Load())
	require.Equal(t, 4, f.QueryCalls())
}

func TestController_OldGenerationResponsesAreDropped(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(ok(allSucceeded())),
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Hour, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	require.Equal(t, PhaseCompleted, c.Phase())

	f.mu.Lock()
	f.query = script(ok(scrapeRunning()))
	f.mu.Unlock()
	require.NoError(t, c.Start(context.Background(), nil))
	require.Equal(t, PhasePolling, c.Phase())

	c.mu.Lock()
	oldGen := c.gen - 1
	c.mu.Unlock()
	calls := f.QueryCalls()
	require.NoError(t, c.poll(context.Background(), oldGen, "abc"))
	require.Equal(t, calls, f.QueryCalls())
	require.Equal(t, PhasePolling, c.Phase())
}

func TestController_NewRunStartsFresh(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(ok(failedWith("boom"))),
	}
	rec := &recorder{}
	c := newController(t, f, rec, time.Millisecond, 0)

	require.NoError(t, c.Start(context.Background(), nil))
	require.Equal(t, "boom", waitTerminal(t, c).Error)

	f.mu.Lock()
	f.start = api.StartResult{Started: true, RunID: "def"}
	f.query = func(ctx context.Context, call int) (runstate.RunState, error) {
		st := allSucceeded()
		st.RunID = "def"
		return st, nil
	}
	f.mu.Unlock()

	require.NoError(t, c.Start(context.Background(), runstate.Scope{"backend"}))
	out := waitTerminal(t, c)
	require.Equal(t, PhaseCompleted, out.Phase)
	require.Empty(t, out.Error)
	require.Equal(t, "def", out.RunID())
	require.Equal(t, runstate.Scope{"backend"}, out.Scope)
	require.EqualValues(t, 1, rec.refreshN.Load())
}

func TestController_ScopeIsCopiedAndNormalized(t *testing.T) {
	f := &fakeRunner{start: api.StartResult{Started: false, Message: "x"}}
	c := newController(t, f, &recorder{}, time.Hour, 0)

	scope := runstate.Scope{"web3-crypto", "ai-ml", "ai-ml"}
	require.NoError(t, c.Start(context.Background(), scope))

	require.Equal(t, runstate.Scope{"web3-crypto", "ai-ml", "ai-ml"}, scope)
	require.Equal(t, []runstate.Scope{{"ai-ml", "web3-crypto"}}, f.startScopes)
}

func TestController_ClearData(t *testing.T) {
	f := &fakeRunner{clear: api.ClearResult{Deleted: 7, Message: "Deleted 7 repositories."}}
	rec := &recorder{}
	c := newController(t, f, rec, time.Hour, 0)

	res, err := c.ClearData(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, res.Deleted)

	out := c.Snapshot()
	require.Equal(t, "Deleted 7 repositories.", out.Message)
	require.False(t, out.Clearing)
	require.EqualValues(t, 1, rec.refreshN.Load())

	updates := rec.Updates()
	require.True(t, updates[0].Clearing)
	require.False(t, updates[len(updates)-1].Clearing)
}

func TestController_ClearDataFailure(t *testing.T) {
	f := &fakeRunner{clearErr: &api.RequestFailure{Op: api.OpClearData, StatusCode: 500, Reason: "db locked"}}
	rec := &recorder{}
	c := newController(t, f, rec, time.Hour, 0)

	_, err := c.ClearData(context.Background())
	require.Error(t, err)
	require.Equal(t, "db locked", c.Snapshot().Error)
	require.Zero(t, rec.refreshN.Load())
}

func TestController_WaitHonoursContext(t *testing.T) {
	f := &fakeRunner{
		start: api.StartResult{Started: true, RunID: "abc"},
		query: script(ok(scrapeRunning())),
	}
	c := newController(t, f, &recorder{}, time.Hour, 0)
	require.NoError(t, c.Start(context.Background(), nil))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	out, err := c.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, PhasePolling, out.Phase)
}

func TestNew_Validates(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	_, err = New(Options{Client: &fakeRunner{}, MaxPollFailures: -1})
	require.Error(t, err)
}

func TestOutput_Display(t *testing.T) {
	run := &runstate.RunState{Steps: []runstate.Step{{Name: "a", Status: runstate.StepRunning}}}
	require.Equal(t, DisplayNone, Output{}.Display())
	require.Equal(t, DisplayMessage, Output{Message: "m"}.Display())
	require.Equal(t, DisplayMessage, Output{Message: "m", Run: &runstate.RunState{}}.Display())
	require.Equal(t, DisplayProgress, Output{Message: "m", Run: run}.Display())
	require.Equal(t, DisplayError, Output{Message: "m", Run: run, Error: "e"}.Display())
}
