package tui

import (
	"time"

	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type EventLogEntry struct {
	At     time.Time `json:"at"`
	Source string    `json:"source,omitempty"`
	Level  LogLevel  `json:"level,omitempty"`
	Text   string    `json:"text"`
}

type ActionLog struct {
	At    time.Time `json:"at"`
	Level LogLevel  `json:"level,omitempty"`
	Text  string    `json:"text"`
}

type RunUpdated struct {
	At     time.Time         `json:"at"`
	Output controller.Output `json:"output"`
}

type RunStep struct {
	At         time.Time               `json:"at"`
	Transition runstate.StepTransition `json:"transition"`
}

type RunRefresh struct {
	At time.Time `json:"at"`
}

// DashboardSnapshot is one load of the dashboard's read-only data. Sections
// that failed to load are nil and carry their reason in Errors.
type DashboardSnapshot struct {
	At         time.Time         `json:"at"`
	Query      api.TrendingQuery `json:"query"`
	Categories []api.Category    `json:"categories,omitempty"`
	Stats      *api.Stats        `json:"stats,omitempty"`
	Trending   *api.TrendingPage `json:"trending,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func (s DashboardSnapshot) Ok() bool { return len(s.Errors) == 0 }
