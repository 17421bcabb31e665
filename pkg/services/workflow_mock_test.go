package services

import (
	"errors"
	"testing"

	"github.com/dukex/bundleflow/pkg/mocks"
	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

func TestWorkflow_StoreFailures(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(repo *mocks.MockWorkflowRepository)
		call  func(service *Workflow) error
	}{
		{
			name: "fetch all",
			setup: func(repo *mocks.MockWorkflowRepository) {
				repo.On("GetAll", mock.Anything).Return(nil, errStoreDown)
			},
			call: func(service *Workflow) error {
				_, err := service.FetchAll(t.Context())

				return err
			},
		},
		{
			name: "create",
			setup: func(repo *mocks.MockWorkflowRepository) {
				repo.On("Save", mock.Anything, mock.AnythingOfType("*models.Workflow")).Return(errStoreDown)
			},
			call: func(service *Workflow) error {
				_, err := service.Create(t.Context(), sheetsToSlack())

				return err
			},
		},
		{
			name: "delete",
			setup: func(repo *mocks.MockWorkflowRepository) {
				repo.On("GetByID", mock.Anything, "wf-1").Return(sheetsToSlack(), nil)
				repo.On("Delete", mock.Anything, "wf-1").Return(errStoreDown)
			},
			call: func(service *Workflow) error {
				return service.Delete(t.Context(), "wf-1")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := mocks.NewMockPersistence()
			tc.setup(store.Workflows)

			err := tc.call(NewWorkflow(store, testRegistry(t), nil, nil))
			require.ErrorIs(t, err, errStoreDown)
			assert.False(t, IsValidationError(err))
			assert.False(t, IsNotFound(err))

			store.Workflows.AssertExpectations(t)
		})
	}
}

func TestWorkflow_DeleteMissingSkipsRepository(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.Workflows.On("GetByID", mock.Anything, "missing").
		Return(nil, persistence.NewWorkflowError("GetByID", "missing", persistence.ErrWorkflowNotFound))

	err := NewWorkflow(store, nil, nil, nil).Delete(t.Context(), "missing")
	require.True(t, IsNotFound(err))

	store.Workflows.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestWorkflow_UpdateKeepsCreatedAt(t *testing.T) {
	existing := sheetsToSlack()
	existing.ID = "wf-1"
	existing.CreatedAt = existing.CreatedAt.AddDate(2024, 0, 0)

	store := mocks.NewMockPersistence()
	store.Workflows.On("GetByID", mock.Anything, "wf-1").Return(existing, nil)
	store.Workflows.On("Save", mock.Anything, mock.MatchedBy(func(w *models.Workflow) bool {
		return w.ID == "wf-1" && w.CreatedAt.Equal(existing.CreatedAt)
	})).Return(nil)

	updated, err := NewWorkflow(store, nil, nil, nil).Update(t.Context(), "wf-1", sheetsToSlack())
	require.NoError(t, err)
	assert.Equal(t, "wf-1", updated.ID)

	store.Workflows.AssertExpectations(t)
}

func TestWorkflow_HealthCheckUnhealthy(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.On("HealthCheck", mock.Anything).Return(errStoreDown)

	message, ok := NewWorkflow(store, nil, nil, nil).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer is unhealthy: store down", message)
}
