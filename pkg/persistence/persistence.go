// Package persistence stores workflow documents: graphs plus their node parameters.
// Run history is never persisted.
package persistence

import (
	"context"

	"github.com/dukex/bundleflow/pkg/models"
)

type WorkflowRepository interface {
	// GetAll returns every stored workflow, newest first.
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	// GetByID returns ErrWorkflowNotFound, wrapped, when id is unknown.
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	// Save inserts or replaces a workflow, stamping CreatedAt and UpdatedAt.
	Save(ctx context.Context, workflow *models.Workflow) error
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
}

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
