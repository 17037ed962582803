package runstate

import (
	"github.com/pkg/errors"
)

type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepFailure StepStatus = "failure"
)

func (s StepStatus) Valid() bool {
	switch s {
	case StepPending, StepRunning, StepSuccess, StepFailure:
		return true
	default:
		return false
	}
}

type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunFailure RunStatus = "failure"
)

func (s RunStatus) Valid() bool {
	switch s {
	case RunRunning, RunSuccess, RunFailure:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether polling for a run in this status should stop.
func (s RunStatus) IsTerminal() bool {
	return s == RunSuccess || s == RunFailure
}

// DefaultStepNames are the stages the ingestion backend runs, in order.
var DefaultStepNames = []string{
	"Ingest trending",
	"Ingest search",
	"Score & filter",
	"Classify",
	"Generate content",
}

type Step struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
}

// RunState is one status snapshot of a run as reported by the backend.
// Snapshots are replaced wholesale, never merged field by field.
type RunState struct {
	RunID            string    `json:"chain_id"`
	Status           RunStatus `json:"status"`
	CurrentStepIndex *int      `json:"current_step_index"`
	Steps            []Step    `json:"steps"`
	Error            string    `json:"error,omitempty"`
}

// Placeholder returns a running snapshot with every step pending.
func Placeholder(runID string) RunState {
	steps := make([]Step, 0, len(DefaultStepNames))
	for _, name := range DefaultStepNames {
		steps = append(steps, Step{Name: name, Status: StepPending})
	}
	return RunState{RunID: runID, Status: RunRunning, Steps: steps}
}

// Normalize enforces that Error is only set on failed runs and that a nil
// step list decodes as empty.
func (s RunState) Normalize() RunState {
	if s.Status != RunFailure {
		s.Error = ""
	}
	if s.Steps == nil {
		s.Steps = []Step{}
	}
	return s
}

// Validate checks the structural invariants of a snapshot. It does not require
// steps before the active one to be successful: the backend reports them as
// pending when it cannot reconstruct the chain.
func (s RunState) Validate() error {
	if !s.Status.Valid() {
		return errors.Errorf("unknown run status %q", s.Status)
	}
	seen := make(map[string]struct{}, len(s.Steps))
	running := 0
	for i, st := range s.Steps {
		if !st.Status.Valid() {
			return errors.Errorf("step %d (%s): unknown status %q", i, st.Name, st.Status)
		}
		if _, ok := seen[st.Name]; ok {
			return errors.Errorf("duplicate step name %q", st.Name)
		}
		seen[st.Name] = struct{}{}
		if st.Status == StepRunning {
			running++
		}
	}
	if running > 1 {
		return errors.Errorf("%d steps running, at most one allowed", running)
	}
	if s.CurrentStepIndex != nil {
		idx := *s.CurrentStepIndex
		if idx < 0 || idx >= len(s.Steps) {
			return errors.Errorf("current_step_index %d out of range [0,%d)", idx, len(s.Steps))
		}
	}
	if s.Error != "" && s.Status != RunFailure {
		return errors.Errorf("error set on %s run", s.Status)
	}
	return nil
}

func (s RunState) Clone() RunState {
	out := s
	if s.CurrentStepIndex != nil {
		idx := *s.CurrentStepIndex
		out.CurrentStepIndex = &idx
	}
	if s.Steps != nil {
		out.Steps = append([]Step{}, s.Steps...)
	}
	return out
}

// ActiveStep returns the step pointed at by CurrentStepIndex.
func (s RunState) ActiveStep() (Step, bool) {
	if s.CurrentStepIndex == nil {
		return Step{}, false
	}
	idx := *s.CurrentStepIndex
	if idx < 0 || idx >= len(s.Steps) {
		return Step{}, false
	}
	return s.Steps[idx], true
}

// Progress returns the number of successful steps and the total.
func (s RunState) Progress() (done, total int) {
	for _, st := range s.Steps {
		if st.Status == StepSuccess {
			done++
		}
	}
	return done, len(s.Steps)
}

func (s RunState) Percent() int {
	done, total := s.Progress()
	if total == 0 {
		return 0
	}
	return done * 100 / total
}

func IntPtr(v int) *int { return &v }
