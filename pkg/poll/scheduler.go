package poll

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultInterval = 2500 * time.Millisecond

// Action is one poll invocation. Returned errors are logged and do not stop
// the cycle.
type Action func(ctx context.Context) error

// Handle is one armed polling cycle. It is released exactly once, whichever
// of Stop, Scheduler.Disarm, a re-Arm or parent context cancellation comes first.
type Handle struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Stop cancels the cycle. An invocation already in progress runs to completion.
func (h *Handle) Stop() { h.cancel() }

// Done is closed once no further invocation will start.
func (h *Handle) Done() <-chan struct{} { return h.done }

func (h *Handle) Stopped() bool { return h.ctx.Err() != nil }

// Scheduler invokes an action immediately on Arm and then repeatedly with a
// fixed delay between the end of one invocation and the start of the next.
type Scheduler struct {
	Interval time.Duration

	mu      sync.Mutex
	current *Handle
	ticks   atomic.Int64
}

func New(interval time.Duration) *Scheduler {
	return &Scheduler{Interval: interval}
}

// Arm starts a new cycle, first releasing any previous one and waiting for its
// loop to exit so timers never overlap. The first invocation runs on the
// caller's goroutine before Arm returns. Arm must not be called from inside an
// action.
func (s *Scheduler) Arm(ctx context.Context, action Action) *Handle {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	hctx, cancel := context.WithCancel(ctx)
	h := &Handle{ctx: hctx, cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	s.current = h
	s.mu.Unlock()

	s.invoke(hctx, action)
	if hctx.Err() != nil {
		s.release(h)
		close(h.done)
		return h
	}

	go s.loop(h, action)
	return h
}

// Disarm stops the current cycle, if any. It does not wait, so it is safe to
// call from inside an action.
func (s *Scheduler) Disarm() {
	s.mu.Lock()
	h := s.current
	s.current = nil
	s.mu.Unlock()
	if h != nil {
		h.cancel()
	}
}

func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil && s.current.ctx.Err() == nil
}

// Ticks returns the number of invocations started since the scheduler was created.
func (s *Scheduler) Ticks() int64 { return s.ticks.Load() }

func (s *Scheduler) interval() time.Duration {
	if s.Interval <= 0 {
		return DefaultInterval
	}
	return s.Interval
}

func (s *Scheduler) loop(h *Handle, action Action) {
	defer close(h.done)
	defer s.release(h)

	t := time.NewTimer(s.interval())
	defer t.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-t.C:
		}
		if h.ctx.Err() != nil {
			return
		}
		s.invoke(h.ctx, action)
		t.Reset(s.interval())
	}
}

func (s *Scheduler) invoke(ctx context.Context, action Action) {
	n := s.ticks.Add(1)
	if err := action(ctx); err != nil {
		log.Debug().Err(err).Int64("tick", n).Msg("poll action failed; retrying next tick")
	}
}

func (s *Scheduler) release(h *Handle) {
	h.cancel()
	s.mu.Lock()
	if s.current == h {
		s.current = nil
	}
	s.mu.Unlock()
}
