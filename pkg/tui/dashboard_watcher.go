package tui

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// DashboardSource is the read side of the backend the dashboard shows.
type DashboardSource interface {
	Categories(ctx context.Context) ([]api.Category, error)
	Stats(ctx context.Context) (api.Stats, error)
	Trending(ctx context.Context, q api.TrendingQuery) (api.TrendingPage, error)
}

var _ DashboardSource = (*api.Client)(nil)

// DashboardWatcher loads categories, stats and a trending page together and
// publishes them as one snapshot, on an interval and whenever triggered.
type DashboardWatcher struct {
	Source   DashboardSource
	Interval time.Duration
	Timeout  time.Duration
	Pub      message.Publisher

	mu      sync.Mutex
	query   api.TrendingQuery
	trigger chan struct{}
	once    sync.Once
}

func (w *DashboardWatcher) init() {
	w.once.Do(func() {
		w.trigger = make(chan struct{}, 1)
	})
}

// Trigger schedules a reload. Calls made while one is pending coalesce.
func (w *DashboardWatcher) Trigger() {
	w.init()
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// SetQuery changes the trending query and schedules a reload.
func (w *DashboardWatcher) SetQuery(q api.TrendingQuery) {
	w.mu.Lock()
	w.query = q
	w.mu.Unlock()
	w.Trigger()
}

func (w *DashboardWatcher) Query() api.TrendingQuery {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.query
}

func (w *DashboardWatcher) Run(ctx context.Context) error {
	if w.Source == nil {
		return errors.New("missing Source")
	}
	if w.Pub == nil {
		return errors.New("missing Publisher")
	}
	if w.Interval <= 0 {
		w.Interval = 30 * time.Second
	}
	w.init()

	t := time.NewTicker(w.Interval)
	defer t.Stop()

	for {
		snap := w.Load(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err := Publish(w.Pub, TopicRunEvents, DomainTypeDashboardSnapshot, snap); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		case <-w.trigger:
		}
	}
}

// Load fetches one snapshot. Failures of individual sections are recorded in
// the snapshot rather than returned.
func (w *DashboardWatcher) Load(ctx context.Context) DashboardSnapshot {
	q := w.Query()
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	var (
		mu   sync.Mutex
		snap = DashboardSnapshot{Query: q}
	)
	fail := func(section string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if snap.Errors == nil {
			snap.Errors = map[string]string{}
		}
		snap.Errors[section] = err.Error()
		log.Debug().Err(err).Str("section", section).Msg("dashboard load failed")
	}

	var g errgroup.Group
	g.Go(func() error {
		cats, err := w.Source.Categories(ctx)
		if err != nil {
			fail("categories", err)
			return nil
		}
		mu.Lock()
		snap.Categories = cats
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		st, err := w.Source.Stats(ctx)
		if err != nil {
			fail("stats", err)
			return nil
		}
		mu.Lock()
		snap.Stats = &st
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		page, err := w.Source.Trending(ctx, q)
		if err != nil {
			fail("trending", err)
			return nil
		}
		mu.Lock()
		snap.Trending = &page
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	snap.At = time.Now()
	return snap
}
