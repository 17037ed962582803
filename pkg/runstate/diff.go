package runstate

type StepTransition struct {
	RunID string     `json:"run_id"`
	Index int        `json:"index"`
	Name  string     `json:"name"`
	From  StepStatus `json:"from,omitempty"`
	To    StepStatus `json:"to"`
}

// Diff returns the step status changes between two snapshots of the same run.
// Steps are matched by name; a step absent from prev is reported with an empty From.
// A nil prev, or one for another run, reports every non-pending step of next.
func Diff(prev *RunState, next RunState) []StepTransition {
	before := map[string]StepStatus{}
	if prev != nil && prev.RunID == next.RunID {
		for _, st := range prev.Steps {
			before[st.Name] = st.Status
		}
	}

	var out []StepTransition
	for i, st := range next.Steps {
		from, ok := before[st.Name]
		if ok && from == st.Status {
			continue
		}
		if !ok && st.Status == StepPending {
			continue
		}
		out = append(out, StepTransition{
			RunID: next.RunID,
			Index: i,
			Name:  st.Name,
			From:  from,
			To:    st.Status,
		})
	}
	return out
}
