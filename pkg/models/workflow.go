package models

import "time"

// Workflow is a stored graph document: a graph plus the per-node parameter values.
type Workflow struct {
	ID          string                    `json:"id"          yaml:"id"`
	Name        string                    `json:"name"        yaml:"name"        validate:"required,min=3"`
	Description string                    `json:"description" yaml:"description"`
	Nodes       []Node                    `json:"nodes"       yaml:"nodes"       validate:"dive"`
	Edges       []Edge                    `json:"edges"       yaml:"edges"       validate:"dive"`
	Config      map[string]map[string]any `json:"config"      yaml:"config"`
	CreatedAt   time.Time                 `json:"created_at"  yaml:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"  yaml:"updated_at"`
}

// Graph returns the node/edge list of the workflow.
func (w *Workflow) Graph() Graph {
	return Graph{Nodes: w.Nodes, Edges: w.Edges}
}

// Validate checks the workflow fields and its graph.
func (w *Workflow) Validate() error {
	err := validate.Struct(w)
	if err != nil {
		return err
	}

	return w.Graph().Validate()
}
