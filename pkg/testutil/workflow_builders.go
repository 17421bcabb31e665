// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"strconv"

	"github.com/dukex/bundleflow/pkg/models"
)

// CreateTestWorkflow creates a two-node Sheets to Slack workflow that can be overridden.
// Node "2" references node "1" in its config.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		Name:        "Sheets to Slack",
		Description: "Posts each new row",
		Nodes: []models.Node{
			{ID: "1", Module: "google-sheets:add"},
			{ID: "2", Module: "slack:send"},
		},
		Edges: []models.Edge{{Source: "1", Target: "2"}},
		Config: map[string]map[string]any{
			"2": {"channel": "#general", "text": "Row {{1.name}}"},
		},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithID sets the workflow id.
func WithID(id string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithName sets the workflow name.
func WithName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}

// WithConfig sets the configuration of one node.
func WithConfig(nodeID string, config map[string]any) func(*models.Workflow) {
	return func(w *models.Workflow) {
		if w.Config == nil {
			w.Config = make(map[string]map[string]any)
		}

		w.Config[nodeID] = config
	}
}

// WithChain replaces the graph with a linear chain of the given modules,
// numbering nodes from "1".
func WithChain(modules ...string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nil
		w.Edges = nil
		w.Config = nil

		for i, module := range modules {
			id := strconv.Itoa(i + 1)
			w.Nodes = append(w.Nodes, models.Node{ID: id, Module: module})

			if i > 0 {
				w.Edges = append(w.Edges, models.Edge{Source: strconv.Itoa(i), Target: id})
			}
		}
	}
}

// WithoutGraph removes every node, edge and config.
func WithoutGraph() func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nil
		w.Edges = nil
		w.Config = nil
	}
}
