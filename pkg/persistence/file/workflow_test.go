package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/persistence"
	"github.com/dukex/bundleflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow(id string) *models.Workflow {
	return testutil.CreateTestWorkflow(testutil.WithID(id))
}

func TestWorkflowRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	p := NewPersistence("file://" + t.TempDir())
	repo := p.WorkflowRepository()

	workflow := sampleWorkflow("wf-1")
	require.NoError(t, repo.Save(ctx, workflow))
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.Equal(t, workflow.CreatedAt, workflow.UpdatedAt)

	loaded, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	assert.Equal(t, workflow.Nodes, loaded.Nodes)
	assert.Equal(t, workflow.Edges, loaded.Edges)
	assert.Equal(t, "Row {{1.name}}", loaded.Config["2"]["text"])
	assert.True(t, workflow.CreatedAt.Equal(loaded.CreatedAt))

	require.NoError(t, p.HealthCheck(ctx))
	require.NoError(t, p.Close(ctx))
}

func TestWorkflowRepository_SaveAssignsID(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	workflow := sampleWorkflow("")
	require.NoError(t, repo.Save(ctx, workflow))
	require.NotEmpty(t, workflow.ID)

	_, err := repo.GetByID(ctx, workflow.ID)
	require.NoError(t, err)
}

func TestWorkflowRepository_SaveKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	workflow := sampleWorkflow("wf-1")
	require.NoError(t, repo.Save(ctx, workflow))

	clock = clock.Add(time.Minute)
	workflow.Name = "Renamed"
	require.NoError(t, repo.Save(ctx, workflow))

	loaded, err := repo.GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
	assert.True(t, loaded.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, loaded.UpdatedAt.Equal(clock))
}

func TestWorkflowRepository_GetAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewWorkflowRepository(dir)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	require.NoError(t, repo.Save(ctx, sampleWorkflow("older")))

	clock = clock.Add(time.Hour)
	require.NoError(t, repo.Save(ctx, sampleWorkflow("newer")))

	yamlDoc := "name: Hand written\nnodes:\n  - id: a\n    module: util:noop\nedges: []\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manual.yaml"), []byte(yamlDoc), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0600))

	all, err = repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "newer", all[0].ID)
	assert.Equal(t, "older", all[1].ID)
	assert.Equal(t, "manual", all[2].ID)
	assert.Equal(t, []models.Node{{ID: "a", Module: "util:noop"}}, all[2].Nodes)

	manual, err := repo.GetByID(ctx, "manual")
	require.NoError(t, err)
	assert.Equal(t, "Hand written", manual.Name)
}

func TestWorkflowRepository_NotFound(t *testing.T) {
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_RejectsUnsafeIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	_, err := repo.GetByID(ctx, "../secrets")
	require.ErrorIs(t, err, persistence.ErrInvalidWorkflowID)

	err = repo.Save(ctx, sampleWorkflow("a/b"))
	require.ErrorIs(t, err, persistence.ErrInvalidWorkflowID)

	err = repo.Delete(ctx, "..")
	require.ErrorIs(t, err, persistence.ErrInvalidWorkflowID)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewWorkflowRepository(t.TempDir())

	require.NoError(t, repo.Save(ctx, sampleWorkflow("wf-1")))
	require.NoError(t, repo.Delete(ctx, "wf-1"))
	require.NoError(t, repo.Delete(ctx, "wf-1"))

	_, err := repo.GetByID(ctx, "wf-1")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}
