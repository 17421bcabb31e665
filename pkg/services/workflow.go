package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/persistence"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/workflow"
)

type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	executor    *workflow.Executor
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. reg may be nil, in which case
// validation skips every module check.
func NewWorkflow(
	persistence persistence.Persistence,
	reg *registry.Registry,
	executor *workflow.Executor,
	logger *slog.Logger,
) *Workflow {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Workflow{
		persistence: persistence,
		registry:    reg,
		executor:    executor,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// FetchAll returns every stored workflow, newest first.
func (w *Workflow) FetchAll(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.WorkflowRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create stores a new workflow under a fresh id.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	err := checkWorkflow("Create", workflow)
	if err != nil {
		return nil, err
	}

	workflow.ID = ""
	workflow.CreatedAt = time.Time{}

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "nodes", len(workflow.Nodes))

	return workflow, nil
}

// Update replaces an existing workflow, keeping its id and creation time.
func (w *Workflow) Update(ctx context.Context, workflowID string, workflow *models.Workflow) (*models.Workflow, error) {
	err := checkWorkflow("Update", workflow)
	if err != nil {
		return nil, err
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	workflow.ID = workflowID
	workflow.CreatedAt = existing.CreatedAt

	err = w.persistence.WorkflowRepository().Save(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a workflow by its ID.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	_, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID)

	return nil
}

// Validate checks a stored workflow against the registry.
func (w *Workflow) Validate(ctx context.Context, workflowID string) (*ValidationReport, error) {
	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return ValidateGraph(w.registry, workflow.Graph(), workflow.Config), nil
}

// ValidateGraph checks an unsaved graph against the registry.
func (w *Workflow) ValidateGraph(graph models.Graph, configs map[string]map[string]any) *ValidationReport {
	return ValidateGraph(w.registry, graph, configs)
}

// Run executes a stored workflow once.
func (w *Workflow) Run(ctx context.Context, workflowID string) (*models.Run, error) {
	workflow, err := w.FetchByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	w.logger.InfoContext(ctx, "Running workflow", "workflow_id", workflow.ID, "name", workflow.Name)

	return w.Execute(ctx, workflow.Graph(), workflow.Config)
}

// Execute runs an unsaved graph once. The run is returned even when it failed.
func (w *Workflow) Execute(
	ctx context.Context,
	graph models.Graph,
	configs map[string]map[string]any,
) (*models.Run, error) {
	if w.executor == nil {
		return nil, fmt.Errorf("%w: no executor configured", ErrInvalidRequest)
	}

	err := graph.Validate()
	if err != nil {
		return nil, NewValidationError("Execute", "INVALID_GRAPH", err.Error(), ErrInvalidWorkflow)
	}

	for _, warning := range ValidateGraph(w.registry, graph, configs).Warnings() {
		w.logger.WarnContext(ctx, "Graph warning", "node_id", warning.NodeID, "message", warning.Message)
	}

	return w.executor.Run(ctx, graph, configs)
}

func checkWorkflow(op string, workflow *models.Workflow) error {
	if workflow == nil {
		return ErrWorkflowNil
	}

	err := workflow.Validate()
	if err != nil {
		return NewValidationError(op, "INVALID_WORKFLOW", err.Error(), ErrInvalidWorkflow)
	}

	return nil
}
