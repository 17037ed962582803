package tui

import (
	"github.com/go-go-golems/trendctl/pkg/api"
	"github.com/go-go-golems/trendctl/pkg/controller"
	"github.com/go-go-golems/trendctl/pkg/runstate"
)

type RunUpdatedMsg struct {
	Output controller.Output
}

type RunStepMsg struct {
	Transition runstate.StepTransition
}

type DashboardSnapshotMsg struct {
	Snapshot DashboardSnapshot
}

type EventLogAppendMsg struct {
	Entry EventLogEntry
}

type ActionRequestMsg struct {
	Request ActionRequest
}

// QueryChangedMsg asks the dashboard watcher to reload with a new trending query.
type QueryChangedMsg struct {
	Query api.TrendingQuery
}

type NavigateToRepoMsg struct {
	ID       int
	FullName string
}

type NavigateBackMsg struct{}

type RepoDetailMsg struct {
	ID     int
	Detail *api.RepositoryDetail
	Err    error
}
