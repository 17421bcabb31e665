package models

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraph_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		graph     Graph
		fieldName string
		duplicate bool
	}{
		{
			name: "valid graph",
			graph: Graph{
				Nodes: []Node{{ID: "a", Module: "util:noop"}, {ID: "b", Module: "slack:send"}},
				Edges: []Edge{{Source: "a", Target: "b"}},
			},
		},
		{
			name:      "missing module",
			graph:     Graph{Nodes: []Node{{ID: "a"}}},
			fieldName: "Module",
		},
		{
			name:      "missing edge target",
			graph:     Graph{Nodes: []Node{{ID: "a", Module: "m"}}, Edges: []Edge{{Source: "a"}}},
			fieldName: "Target",
		},
		{
			name:      "duplicate node id",
			graph:     Graph{Nodes: []Node{{ID: "a", Module: "m"}, {ID: "a", Module: "n"}}},
			duplicate: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.graph.Validate()

			switch {
			case tc.duplicate:
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrDuplicateNode)
			case tc.fieldName != "":
				var validationErrors validator.ValidationErrors

				require.True(t, errors.As(err, &validationErrors))

				found := false

				for _, fieldErr := range validationErrors {
					if fieldErr.Field() == tc.fieldName && fieldErr.Tag() == "required" {
						found = true
					}
				}

				assert.True(t, found, "should report required %s", tc.fieldName)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestGraph_PredecessorsKeepEdgeOrder(t *testing.T) {
	graph := Graph{
		Nodes: []Node{{ID: "a", Module: "m"}, {ID: "b", Module: "m"}, {ID: "c", Module: "m"}, {ID: "d", Module: "m"}},
		Edges: []Edge{
			{Source: "c", Target: "d"},
			{Source: "a", Target: "d"},
			{Source: "ghost", Target: "d"},
			{Source: "b", Target: "d"},
			{Source: "a", Target: "b"},
		},
	}

	assert.Equal(t, []string{"c", "a", "b"}, graph.Predecessors("d"))
	assert.Equal(t, []string{"d", "b"}, graph.Successors("a"))
	assert.Empty(t, graph.Predecessors("a"))
}

func TestExecutionContext_RecordIsWriteOnce(t *testing.T) {
	execCtx, record := NewExecutionContext("exec-1", "scen-1", nil)

	require.NoError(t, record("a", []Bundle{{"x": 1}}))

	err := record("a", []Bundle{{"x": 2}})
	assert.ErrorIs(t, err, ErrScopeAlreadyRecorded)

	out, ok := execCtx.Output("a")
	require.True(t, ok)
	assert.Equal(t, 1, out[0]["x"])

	_, ok = execCtx.Output("missing")
	assert.False(t, ok)
}

func TestExecutionContext_OutputIsIsolated(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, execCtx *ExecutionContext, recorded []Bundle)
	}{
		{
			name: "recorded slice changed after recording",
			mutate: func(_ *testing.T, _ *ExecutionContext, recorded []Bundle) {
				recorded[0]["v"] = "changed"
				recorded[0]["tags"].([]string)[0] = "changed"
			},
		},
		{
			name: "output bundle changed by reader",
			mutate: func(t *testing.T, execCtx *ExecutionContext, _ []Bundle) {
				out, ok := execCtx.Output("a")
				require.True(t, ok)
				out[0]["v"] = "changed"
				out[0]["nested"].(map[string]any)["k"] = "changed"
				out[0]["tags"].([]string)[0] = "changed"
			},
		},
		{
			name: "scope bundle changed by reader",
			mutate: func(_ *testing.T, execCtx *ExecutionContext, _ []Bundle) {
				scope := execCtx.Scope()
				scope["a"][0]["v"] = "changed"
				scope["a"] = nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			execCtx, record := NewExecutionContext("exec-1", "scen-1", nil)

			recorded := []Bundle{{
				"v":      "original",
				"nested": map[string]any{"k": "original"},
				"tags":   []string{"original"},
			}}
			require.NoError(t, record("a", recorded))

			tt.mutate(t, execCtx, recorded)

			out, ok := execCtx.Output("a")
			require.True(t, ok)
			assert.Equal(t, []Bundle{{
				"v":      "original",
				"nested": map[string]any{"k": "original"},
				"tags":   []string{"original"},
			}}, out)
		})
	}
}

func TestGraph_PredecessorIndex(t *testing.T) {
	graph := Graph{
		Nodes: []Node{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		Edges: []Edge{
			{Source: "c", Target: "d"},
			{Source: "a", Target: "d"},
			{Source: "ghost", Target: "d"},
			{Source: "b", Target: "d"},
			{Source: "a", Target: "b"},
			{Source: "a", Target: "ghost"},
		},
	}

	index := graph.PredecessorIndex()

	assert.Equal(t, map[string][]string{
		"d": {"c", "a", "b"},
		"b": {"a"},
	}, index)

	for _, node := range graph.Nodes {
		assert.Equal(t, graph.Predecessors(node.ID), index[node.ID], node.ID)
	}
}

func TestExecutionContext_GlobalsConcurrentWrites(t *testing.T) {
	execCtx, _ := NewExecutionContext("exec-1", "scen-1", nil)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()
			execCtx.SetGlobal("last", i)
			_, _ = execCtx.Global("last")
		}()
	}

	wg.Wait()

	globals := execCtx.Globals()
	assert.Contains(t, globals, "last")

	globals["injected"] = true
	_, ok := execCtx.Global("injected")
	assert.False(t, ok, "snapshot must not alias the live globals")
}

func TestExecutionContext_LogForwardsToSink(t *testing.T) {
	var levels []LogLevel

	execCtx, _ := NewExecutionContext("exec-1", "scen-1", func(level LogLevel, _ string, _ any) {
		levels = append(levels, level)
	})

	execCtx.Log(LogLevelWarn, "careful", nil)
	execCtx.Log(LogLevelInfo, "fine", map[string]any{"k": "v"})

	assert.Equal(t, []LogLevel{LogLevelWarn, LogLevelInfo}, levels)
}

func TestRun_Failed(t *testing.T) {
	run := &Run{Results: map[string]*StepResult{
		"a": {NodeID: "a", Status: StepStatusSuccess},
		"b": {NodeID: "b", Status: StepStatusIgnored},
	}}

	assert.False(t, run.Failed())
	assert.Equal(t, 1, run.Count(StepStatusIgnored))

	run.Results["c"] = &StepResult{NodeID: "c", Status: StepStatusError}
	assert.True(t, run.Failed())
}

func TestWorkflow_Validate(t *testing.T) {
	workflow := &Workflow{
		Name:  "Sheets to Slack",
		Nodes: []Node{{ID: "1", Module: "google-sheets:watchRows"}, {ID: "1", Module: "slack:send"}},
	}

	assert.ErrorIs(t, workflow.Validate(), ErrDuplicateNode)

	workflow.Name = "ab"
	assert.Error(t, workflow.Validate())
}
