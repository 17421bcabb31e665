package web

import (
	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/registry"
)

// GraphRequest carries an unsaved graph plus its per-node parameter values.
type GraphRequest struct {
	Nodes  []models.Node              `json:"nodes"  validate:"dive"`
	Edges  []models.Edge              `json:"edges"  validate:"dive"`
	Config map[string]map[string]any `json:"config"`
}

func (r GraphRequest) Graph() models.Graph {
	return models.Graph{Nodes: r.Nodes, Edges: r.Edges}
}

// WorkflowRequest is the body of workflow create and update calls.
type WorkflowRequest struct {
	GraphRequest

	Name        string `json:"name"        validate:"required,min=3"`
	Description string `json:"description"`
}

func (r WorkflowRequest) Workflow() *models.Workflow {
	return &models.Workflow{
		Name:        r.Name,
		Description: r.Description,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
		Config:      r.Config,
	}
}

// ExportRequest is the body of an ad-hoc blueprint export.
type ExportRequest struct {
	GraphRequest

	Name string `json:"name"`
	Zone string `json:"zone"`
}

type PlanResponse struct {
	Order []string `json:"order"`
}

type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunResponse wraps a run artifact. A run halted by a node still answers 200:
// the partial results are the useful part of the response.
type RunResponse struct {
	Status RunStatus   `json:"status"`
	Error  string      `json:"error,omitempty"`
	Run    *models.Run `json:"run"`
}

// ModuleResponse is a registry module plus the JSON Schema of its parameters.
type ModuleResponse struct {
	registry.Module

	Schema map[string]any `json:"schema"`
}
