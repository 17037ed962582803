package tui

const (
	TopicRunEvents  = "trendctl.events"
	TopicUIMessages = "trendctl.ui.msgs"
	TopicUIActions  = "trendctl.ui.actions"
)

const (
	DomainTypeRunUpdated        = "run.updated"
	DomainTypeRunStep           = "run.step"
	DomainTypeRunRefresh        = "run.refresh"
	DomainTypeDashboardSnapshot = "dashboard.snapshot"
	DomainTypeActionLog         = "action.log"
)

const (
	UITypeRunUpdated        = "tui.run.updated"
	UITypeRunStep           = "tui.run.step"
	UITypeDashboardSnapshot = "tui.dashboard.snapshot"
	UITypeEventAppend       = "tui.event.append"
	UITypeActionRequest     = "tui.action.request"
)
