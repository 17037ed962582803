package runstate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunState_DecodeWireFormat(t *testing.T) {
	raw := `{
		"chain_id": "abc",
		"status": "running",
		"current_step_index": 0,
		"steps": [{"name":"scrape","status":"running"},{"name":"score","status":"pending"}],
		"error": null
	}`
	var st RunState
	require.NoError(t, json.Unmarshal([]byte(raw), &st))
	require.Equal(t, "abc", st.RunID)
	require.Equal(t, RunRunning, st.Status)
	require.NotNil(t, st.CurrentStepIndex)
	require.Equal(t, 0, *st.CurrentStepIndex)
	require.Len(t, st.Steps, 2)
	require.Empty(t, st.Error)
	require.NoError(t, st.Validate())

	active, ok := st.ActiveStep()
	require.True(t, ok)
	require.Equal(t, "scrape", active.Name)
}

func TestRunState_DecodeNullIndex(t *testing.T) {
	var st RunState
	require.NoError(t, json.Unmarshal([]byte(`{"chain_id":"x","status":"success","current_step_index":null,"steps":[]}`), &st))
	require.Nil(t, st.CurrentStepIndex)
	_, ok := st.ActiveStep()
	require.False(t, ok)
}

func TestRunState_Validate(t *testing.T) {
	cases := []struct {
		name string
		st   RunState
		ok   bool
	}{
		{"empty running", RunState{Status: RunRunning}, true},
		{"unknown run status", RunState{Status: "done"}, false},
		{"unknown step status", RunState{Status: RunRunning, Steps: []Step{{Name: "a", Status: "queued"}}}, false},
		{"two running", RunState{Status: RunRunning, Steps: []Step{{Name: "a", Status: StepRunning}, {Name: "b", Status: StepRunning}}}, false},
		{"duplicate names", RunState{Status: RunRunning, Steps: []Step{{Name: "a", Status: StepSuccess}, {Name: "a", Status: StepPending}}}, false},
		{"index out of range", RunState{Status: RunRunning, CurrentStepIndex: IntPtr(2), Steps: []Step{{Name: "a", Status: StepRunning}}}, false},
		{"negative index", RunState{Status: RunRunning, CurrentStepIndex: IntPtr(-1), Steps: []Step{{Name: "a", Status: StepRunning}}}, false},
		{"error on success", RunState{Status: RunSuccess, Error: "boom"}, false},
		{"error on failure", RunState{Status: RunFailure, Error: "boom"}, true},
		{
			"degraded backend reports earlier steps pending",
			RunState{Status: RunRunning, CurrentStepIndex: IntPtr(1), Steps: []Step{{Name: "a", Status: StepPending}, {Name: "b", Status: StepRunning}}},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.st.Validate()
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestRunState_NormalizeDropsErrorUnlessFailed(t *testing.T) {
	st := RunState{Status: RunRunning, Error: "stale"}.Normalize()
	require.Empty(t, st.Error)
	require.NotNil(t, st.Steps)

	st = RunState{Status: RunFailure, Error: "boom"}.Normalize()
	require.Equal(t, "boom", st.Error)
}

func TestRunState_CloneIsDeep(t *testing.T) {
	orig := RunState{RunID: "r", Status: RunRunning, CurrentStepIndex: IntPtr(0), Steps: []Step{{Name: "a", Status: StepRunning}}}
	c := orig.Clone()
	c.Steps[0].Status = StepSuccess
	*c.CurrentStepIndex = 1
	require.Equal(t, StepRunning, orig.Steps[0].Status)
	require.Equal(t, 0, *orig.CurrentStepIndex)
}

func TestRunState_Progress(t *testing.T) {
	st := RunState{Steps: []Step{{Name: "a", Status: StepSuccess}, {Name: "b", Status: StepRunning}, {Name: "c", Status: StepPending}, {Name: "d", Status: StepPending}}}
	done, total := st.Progress()
	require.Equal(t, 1, done)
	require.Equal(t, 4, total)
	require.Equal(t, 25, st.Percent())
	require.Equal(t, 0, RunState{}.Percent())
}

func TestRunStatus_IsTerminal(t *testing.T) {
	require.False(t, RunRunning.IsTerminal())
	require.True(t, RunSuccess.IsTerminal())
	require.True(t, RunFailure.IsTerminal())
}

func TestPlaceholder(t *testing.T) {
	st := Placeholder("abc")
	require.Equal(t, RunRunning, st.Status)
	require.Len(t, st.Steps, len(DefaultStepNames))
	for _, s := range st.Steps {
		require.Equal(t, StepPending, s.Status)
	}
	require.NoError(t, st.Validate())
}

func TestDiff(t *testing.T) {
	first := RunState{RunID: "abc", Status: RunRunning, Steps: []Step{{Name: "scrape", Status: StepRunning}, {Name: "score", Status: StepPending}}}
	second := RunState{RunID: "abc", Status: RunSuccess, Steps: []Step{{Name: "scrape", Status: StepSuccess}, {Name: "score", Status: StepSuccess}}}

	initial := Diff(nil, first)
	require.Equal(t, []StepTransition{{RunID: "abc", Index: 0, Name: "scrape", To: StepRunning}}, initial)

	changes := Diff(&first, second)
	require.Equal(t, []StepTransition{
		{RunID: "abc", Index: 0, Name: "scrape", From: StepRunning, To: StepSuccess},
		{RunID: "abc", Index: 1, Name: "score", From: StepPending, To: StepSuccess},
	}, changes)

	require.Empty(t, Diff(&second, second))

	other := RunState{RunID: "other", Steps: []Step{{Name: "scrape", Status: StepSuccess}}}
	require.Len(t, Diff(&first, other), 1)
}

func TestScope(t *testing.T) {
	require.True(t, Scope(nil).IsAll())
	require.True(t, Scope{"", "  "}.IsAll())
	require.Equal(t, "all categories", Scope{}.String())

	s := NewScope("backend", "ai-ml", "backend", " ")
	require.Equal(t, Scope{"ai-ml", "backend"}, s)
	require.False(t, s.IsAll())
	require.Equal(t, "ai-ml,backend", s.String())

	s = s.Toggle("backend")
	require.Equal(t, Scope{"ai-ml"}, s)
	s = s.Toggle("mcp-tooling")
	require.Equal(t, Scope{"ai-ml", "mcp-tooling"}, s)
}

func TestScope_ToggleDoesNotMutateReceiver(t *testing.T) {
	orig := Scope{"a", "b"}
	_ = orig.Toggle("a")
	_ = orig.Toggle("c")
	require.Equal(t, Scope{"a", "b"}, orig)
}
