package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/poll"
	"github.com/go-go-golems/trendctl/pkg/runstate"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrRunInFlight   = errors.New("a pipeline run is already in flight")
	ErrClearInFlight = errors.New("a data reset is already in flight")
	ErrClosed        = errors.New("run controller closed")
)

const (
	MessageStarted    = "Pipeline started. Tracking progress…"
	MessageFinished   = "Pipeline finished. Refreshing…"
	MessageNotStarted = "Pipeline did not start."
	MessageCleared    = "Existing data cleared."
	ErrorRunFailed    = "Pipeline failed."
)

// Runner is the request/response side of the backend the controller drives.
// *api.Client implements it.
type Runner interface {
	StartRun(ctx context.Context, scope runstate.Scope) (api.StartResult, error)
	QueryStatus(ctx context.Context, runID string) (runstate.RunState, error)
	ClearData(ctx context.Context) (api.ClearResult, error)
}

var _ Runner = (*api.Client)(nil)

// Hooks receive the controller's side effects. They are called one at a time,
// never after Close has returned, and must not call back into Start, ClearData
// or Close.
type Hooks struct {
	OnUpdate  func(Output)
	OnStep    func(runstate.StepTransition)
	OnRefresh func()
}

type Options struct {
	Client   Runner
	Interval time.Duration
	// MaxPollFailures fails the run after that many consecutive status query
	// failures. Zero keeps polling indefinitely.
	MaxPollFailures int
	Hooks           Hooks
	Now             func() time.Time
}

// Controller starts pipeline runs and watches them to a terminal status.
// Only one run is active at a time.
type Controller struct {
	client      Runner
	sched       *poll.Scheduler
	hooks       Hooks
	maxFailures int
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	closed    bool
	phase     Phase
	run       *runstate.RunState
	runID     string
	scope     runstate.Scope
	message   string
	errText   string
	clearing  bool
	failures  int
	gen       uint64
	issued    uint64
	applied   uint64
	refreshed bool
	version   uint64
	updatedAt time.Time
	done      chan struct{}

	emitMu  sync.Mutex
	emitted uint64
}

func New(opts Options) (*Controller, error) {
	if opts.Client == nil {
		return nil, errors.New("missing Client")
	}
	if opts.MaxPollFailures < 0 {
		return nil, errors.Errorf("invalid MaxPollFailures %d", opts.MaxPollFailures)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		client:      opts.Client,
		sched:       poll.New(opts.Interval),
		hooks:       opts.Hooks,
		maxFailures: opts.MaxPollFailures,
		now:         now,
		ctx:         ctx,
		cancel:      cancel,
		phase:       PhaseIdle,
	}
	c.updatedAt = now()
	return c, nil
}

// Start requests a new run for scope and, once the backend accepts it, polls
// its status until it finishes. The first status query completes before Start
// returns. Start fails with ErrRunInFlight while another run is being started
// or watched, and returns the backend error if the run could not be requested.
func (c *Controller) Start(ctx context.Context, scope runstate.Scope) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase.InFlight() {
		c.mu.Unlock()
		return ErrRunInFlight
	}
	if c.clearing {
		c.mu.Unlock()
		return ErrClearInFlight
	}
	c.sched.Disarm()
	c.gen++
	gen := c.gen
	c.phase = PhaseStarting
	c.run = nil
	c.runID = ""
	c.scope = scope.Normalize()
	c.message = ""
	c.errText = ""
	c.failures = 0
	c.issued = 0
	c.applied = 0
	c.refreshed = false
	c.done = make(chan struct{})
	out := c.changedLocked()
	reqScope := append(runstate.Scope{}, c.scope...)
	c.mu.Unlock()
	c.publish(out, nil, false)

	res, err := c.client.StartRun(ctx, reqScope)

	c.mu.Lock()
	if c.closed || c.gen != gen {
		c.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrClosed
	}
	if err != nil {
		c.phase = PhaseIdle
		c.errText = err.Error()
		c.finishLocked()
		out = c.changedLocked()
		c.mu.Unlock()
		log.Warn().Err(err).Str("scope", reqScope.String()).Msg("pipeline run request failed")
		c.publish(out, nil, false)
		return err
	}
	if !res.Started || res.RunID == "" {
		c.phase = PhaseIdle
		c.message = res.Message
		if c.message == "" {
			c.message = MessageNotStarted
		}
		c.finishLocked()
		out = c.changedLocked()
		c.mu.Unlock()
		log.Info().Str("message", res.Message).Msg("pipeline run not started")
		c.publish(out, nil, false)
		return nil
	}

	runID := res.RunID
	c.phase = PhasePolling
	c.runID = runID
	c.message = MessageStarted
	out = c.changedLocked()
	c.mu.Unlock()
	log.Info().Str("run_id", runID).Str("scope", reqScope.String()).Msg("pipeline run started")
	c.publish(out, nil, false)

	c.sched.Arm(c.ctx, func(pctx context.Context) error {
		return c.poll(pctx, gen, runID)
	})
	return nil
}

// poll runs one status query for run generation gen. Responses that arrive for
// an older generation, after teardown, outside polling, or out of order are
// dropped.
func (c *Controller) poll(ctx context.Context, gen uint64, runID string) error {
	c.mu.Lock()
	if !c.liveLocked(gen) {
		c.mu.Unlock()
		return nil
	}
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	st, err := c.client.QueryStatus(ctx, runID)

	c.mu.Lock()
	if !c.liveLocked(gen) {
		c.mu.Unlock()
		log.Debug().Str("run_id", runID).Uint64("seq", seq).Msg("dropping status response for inactive run")
		return nil
	}

	if err != nil {
		c.failures++
		failures := c.failures
		if c.maxFailures > 0 && failures >= c.maxFailures {
			c.phase = PhaseFailed
			c.message = ""
			c.errText = fmt.Sprintf("Lost track of pipeline run after %d failed status checks: %v", failures, err)
			c.sched.Disarm()
			c.finishLocked()
			out := c.changedLocked()
			c.mu.Unlock()
			log.Error().Err(err).Str("run_id", runID).Int("failures", failures).Msg("giving up on pipeline status")
			c.publish(out, nil, false)
			return nil
		}
		c.mu.Unlock()
		return errors.Wrapf(err, "query status %s (%d consecutive failures)", runID, failures)
	}

	if applied := c.applied; seq <= applied {
		c.mu.Unlock()
		log.Debug().Str("run_id", runID).Uint64("seq", seq).Uint64("applied", applied).Msg("dropping stale status response")
		return nil
	}
	c.applied = seq
	c.failures = 0

	next := st.Clone()
	if next.RunID == "" {
		next.RunID = runID
	}
	transitions := runstate.Diff(c.run, next)
	c.run = &next

	refresh := false
	switch next.Status {
	case runstate.RunSuccess:
		c.phase = PhaseCompleted
		c.message = MessageFinished
		c.sched.Disarm()
		if !c.refreshed {
			c.refreshed = true
			refresh = true
		}
		c.finishLocked()
	case runstate.RunFailure:
		c.phase = PhaseFailed
		c.message = ""
		c.errText = next.Error
		if c.errText == "" {
			c.errText = ErrorRunFailed
		}
		c.sched.Disarm()
		c.finishLocked()
	case runstate.RunRunning:
	}
	out := c.changedLocked()
	c.mu.Unlock()

	switch out.Phase {
	case PhaseCompleted:
		log.Info().Str("run_id", runID).Msg("pipeline run finished")
	case PhaseFailed:
		log.Warn().Str("run_id", runID).Str("error", out.Error).Msg("pipeline run failed")
	default:
		done, total := next.Progress()
		log.Debug().Str("run_id", runID).Int("done", done).Int("total", total).Msg("pipeline status")
	}
	c.publish(out, transitions, refresh)
	return nil
}

// ClearData asks the backend to delete ingested data. It is refused while a
// run is in flight or another reset is running.
func (c *Controller) ClearData(ctx context.Context) (api.ClearResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return api.ClearResult{}, ErrClosed
	}
	if c.phase.InFlight() {
		c.mu.Unlock()
		return api.ClearResult{}, ErrRunInFlight
	}
	if c.clearing {
		c.mu.Unlock()
		return api.ClearResult{}, ErrClearInFlight
	}
	c.clearing = true
	c.message = ""
	c.errText = ""
	out := c.changedLocked()
	c.mu.Unlock()
	c.publish(out, nil, false)

	res, err := c.client.ClearData(ctx)

	c.mu.Lock()
	c.clearing = false
	if c.closed {
		c.mu.Unlock()
		return res, err
	}
	refresh := false
	if err != nil {
		c.errText = err.Error()
	} else {
		c.phase = PhaseIdle
		c.run = nil
		c.runID = ""
		c.message = res.Message
		if c.message == "" {
			c.message = MessageCleared
		}
		refresh = true
	}
	out = c.changedLocked()
	c.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Msg("clearing data failed")
	} else {
		log.Info().Int("deleted", res.Deleted).Msg("data cleared")
	}
	c.publish(out, nil, refresh)
	return res, err
}

// Close tears the controller down. Once it returns no hook runs again, even if
// a request that was in flight completes later.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.gen++
	c.phase = PhaseIdle
	c.run = nil
	c.runID = ""
	c.finishLocked()
	c.mu.Unlock()

	c.sched.Disarm()
	c.cancel()

	// Wait out a hook that may be running.
	c.emitMu.Lock()
	//nolint:staticcheck
	c.emitMu.Unlock()
}

func (c *Controller) Snapshot() Output {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outputLocked()
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Polling reports whether the status scheduler is armed.
func (c *Controller) Polling() bool {
	return c.sched.Armed()
}

// Wait blocks until the current run leaves starting/polling, the controller
// is closed, or ctx is done, and returns the latest output.
func (c *Controller) Wait(ctx context.Context) (Output, error) {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
	return c.Snapshot(), nil
}

func (c *Controller) liveLocked(gen uint64) bool {
	return !c.closed && c.gen == gen && c.phase == PhasePolling
}

func (c *Controller) finishLocked() {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
}

func (c *Controller) changedLocked() Output {
	c.version++
	c.updatedAt = c.now()
	return c.outputLocked()
}

func (c *Controller) outputLocked() Output {
	out := Output{
		Version:             c.version,
		Phase:               c.phase,
		Message:             c.message,
		Error:               c.errText,
		Clearing:            c.clearing,
		ConsecutiveFailures: c.failures,
		UpdatedAt:           c.updatedAt,
	}
	if c.run != nil {
		r := c.run.Clone()
		out.Run = &r
	}
	if len(c.scope) > 0 {
		out.Scope = append(runstate.Scope{}, c.scope...)
	}
	return out
}

func (c *Controller) publish(out Output, transitions []runstate.StepTransition, refresh bool) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}

	if out.Version > c.emitted {
		c.emitted = out.Version
		if c.hooks.OnStep != nil {
			for _, tr := range transitions {
				c.hooks.OnStep(tr)
			}
		}
		if c.hooks.OnUpdate != nil {
			c.hooks.OnUpdate(out)
		}
	}
	if refresh && c.hooks.OnRefresh != nil {
		c.hooks.OnRefresh()
	}
}
