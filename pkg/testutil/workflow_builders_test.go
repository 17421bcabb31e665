package testutil

import (
	"testing"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTestWorkflow(t *testing.T) {
	workflow := CreateTestWorkflow()

	require.NoError(t, workflow.Validate())
	assert.Empty(t, workflow.ID)
	assert.Len(t, workflow.Nodes, 2)
}

func TestWithChain(t *testing.T) {
	workflow := CreateTestWorkflow(WithID("wf"), WithChain("a:x", "b:y", "c:z"), WithConfig("3", map[string]any{"k": "v"}))

	assert.Equal(t, "wf", workflow.ID)
	assert.Equal(t, []models.Node{{ID: "1", Module: "a:x"}, {ID: "2", Module: "b:y"}, {ID: "3", Module: "c:z"}}, workflow.Nodes)
	assert.Equal(t, []models.Edge{{Source: "1", Target: "2"}, {Source: "2", Target: "3"}}, workflow.Edges)
	assert.Equal(t, map[string]map[string]any{"3": {"k": "v"}}, workflow.Config)
}
