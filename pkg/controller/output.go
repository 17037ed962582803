package controller

import (
	"time"

	"github.com/go-go-golems/trendctl/pkg/runstate"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseStarting  Phase = "starting"
	PhasePolling   Phase = "polling"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// InFlight reports whether a run is being started or watched.
func (p Phase) InFlight() bool {
	return p == PhaseStarting || p == PhasePolling
}

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Display is the one thing a view should show for an Output.
type Display string

const (
	DisplayNone     Display = "none"
	DisplayMessage  Display = "message"
	DisplayProgress Display = "progress"
	DisplayError    Display = "error"
)

// Output is the published, read-only view of the controller.
type Output struct {
	Version             uint64             `json:"version"`
	Phase               Phase              `json:"phase"`
	Run                 *runstate.RunState `json:"run,omitempty"`
	Scope               runstate.Scope     `json:"scope,omitempty"`
	Message             string             `json:"message,omitempty"`
	Error               string             `json:"error,omitempty"`
	Clearing            bool               `json:"clearing,omitempty"`
	ConsecutiveFailures int                `json:"consecutive_failures,omitempty"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// Display picks exactly one of error, step progress or message, in that order.
func (o Output) Display() Display {
	switch {
	case o.Error != "":
		return DisplayError
	case o.Run != nil && len(o.Run.Steps) > 0:
		return DisplayProgress
	case o.Message != "":
		return DisplayMessage
	default:
		return DisplayNone
	}
}

func (o Output) RunID() string {
	if o.Run == nil {
		return ""
	}
	return o.Run.RunID
}

func (o Output) Clone() Output {
	out := o
	if o.Run != nil {
		r := o.Run.Clone()
		out.Run = &r
	}
	if o.Scope != nil {
		out.Scope = append(runstate.Scope{}, o.Scope...)
	}
	return out
}
