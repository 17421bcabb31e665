package services

import (
	"context"
	"testing"

	"github.com/dukex/bundleflow/pkg/drivers"
	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/persistence/file"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.New(map[string]registry.Entry{
		"google-sheets:add": {
			App:   "google-sheets",
			Label: "Add a Row",
			Parameters: map[string]registry.Parameter{
				"name": {Type: "string", Label: "Name"},
			},
		},
		"slack:send": {
			App:   "slack",
			Label: "Send a Message",
			Parameters: map[string]registry.Parameter{
				"channel": {Type: "string", Label: "Channel", Required: true},
				"text":    {Type: "string", Label: "Text"},
			},
		},
	})
	require.NoError(t, err)

	return reg
}

func newService(t *testing.T) *Workflow {
	t.Helper()

	reg := testRegistry(t)
	executor := workflow.NewExecutor(drivers.NewFactory(reg), nil)

	return NewWorkflow(file.NewPersistence(t.TempDir()), reg, executor, nil)
}

func sheetsToSlack() *models.Workflow {
	return &models.Workflow{
		Name: "Sheets to Slack",
		Nodes: []models.Node{
			{ID: "1", Module: "google-sheets:add"},
			{ID: "2", Module: "slack:send"},
		},
		Edges: []models.Edge{{Source: "1", Target: "2"}},
		Config: map[string]map[string]any{
			"1": {"name": "Ada"},
			"2": {"channel": "#general", "text": "New row: {{1.name}}"},
		},
	}
}

func TestWorkflow_CreateAndFetch(t *testing.T) {
	service := newService(t)

	created, err := service.Create(t.Context(), sheetsToSlack())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sheets to Slack", fetched.Name)
	assert.Equal(t, created.Nodes, fetched.Nodes)

	all, err := service.FetchAll(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestWorkflow_CreateIgnoresClientID(t *testing.T) {
	service := newService(t)

	input := sheetsToSlack()
	input.ID = "chosen-by-client"

	created, err := service.Create(t.Context(), input)
	require.NoError(t, err)
	assert.NotEqual(t, "chosen-by-client", created.ID)
}

func TestWorkflow_CreateRejectsInvalid(t *testing.T) {
	service := newService(t)

	testCases := []struct {
		name     string
		workflow *models.Workflow
	}{
		{name: "nil", workflow: nil},
		{name: "short name", workflow: &models.Workflow{Name: "ab"}},
		{
			name: "duplicate node",
			workflow: &models.Workflow{
				Name:  "Duplicates",
				Nodes: []models.Node{{ID: "1", Module: "a:b"}, {ID: "1", Module: "a:c"}},
			},
		},
		{
			name: "node without module",
			workflow: &models.Workflow{
				Name:  "Missing module",
				Nodes: []models.Node{{ID: "1"}},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Create(t.Context(), tc.workflow)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestWorkflow_Update(t *testing.T) {
	service := newService(t)

	created, err := service.Create(t.Context(), sheetsToSlack())
	require.NoError(t, err)

	changed := sheetsToSlack()
	changed.Name = "Renamed workflow"

	updated, err := service.Update(t.Context(), created.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	fetched, err := service.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed workflow", fetched.Name)

	_, err = service.Update(t.Context(), "missing", sheetsToSlack())
	assert.True(t, IsNotFound(err))
}

func TestWorkflow_Delete(t *testing.T) {
	service := newService(t)

	created, err := service.Create(t.Context(), sheetsToSlack())
	require.NoError(t, err)

	require.NoError(t, service.Delete(t.Context(), created.ID))

	err = service.Delete(t.Context(), created.ID)
	assert.True(t, IsNotFound(err))

	_, err = service.FetchByID(t.Context(), created.ID)
	assert.True(t, IsNotFound(err))
}

func TestWorkflow_Run(t *testing.T) {
	service := newService(t)

	created, err := service.Create(t.Context(), sheetsToSlack())
	require.NoError(t, err)

	run, err := service.Run(t.Context(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, run.Order)
	require.Len(t, run.Results["2"].OutputBundles, 1)
	assert.Equal(t, "New row: Ada", run.Results["2"].OutputBundles[0]["text"])

	_, err = service.Run(t.Context(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestWorkflow_ExecuteRejectsInvalidGraph(t *testing.T) {
	service := newService(t)

	graph := models.Graph{Nodes: []models.Node{{ID: "1", Module: "a:b"}, {ID: "1", Module: "a:b"}}}

	_, err := service.Execute(context.Background(), graph, nil)
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_HealthCheck(t *testing.T) {
	message, ok := newService(t).HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	message, ok = NewWorkflow(nil, nil, nil, nil).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer not initialized", message)
}
