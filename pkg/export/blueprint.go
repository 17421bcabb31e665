// Package export renders graphs as Make.com scenario blueprints.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/planner"
)

const (
	DefaultName = "bundleflow export"
	DefaultZone = "eu1.make.com"

	// Horizontal distance between modules on the designer canvas.
	designerSpacing = 300
)

type Blueprint struct {
	Name     string            `json:"name"`
	Flow     []Module          `json:"flow"`
	Metadata BlueprintMetadata `json:"metadata"`
}

type Module struct {
	ID         int            `json:"id"`
	UUID       string         `json:"uuid"`
	Module     string         `json:"module"`
	Version    int            `json:"version"`
	Parameters map[string]any `json:"parameters"`
	Mapper     map[string]any `json:"mapper"`
	Metadata   ModuleMetadata `json:"metadata"`
}

type ModuleMetadata struct {
	Designer Position `json:"designer"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type BlueprintMetadata struct {
	Version  int              `json:"version"`
	Scenario ScenarioSettings `json:"scenario"`
	Designer DesignerMetadata `json:"designer"`
	Zone     string           `json:"zone"`
}

type ScenarioSettings struct {
	Roundtrip    bool `json:"roundtrip"`
	MaxErrors    int  `json:"maxErrors"`
	AutoCommit   bool `json:"autoCommit"`
	Sequential   bool `json:"sequential"`
	Confidential bool `json:"confidential"`
}

type DesignerMetadata struct {
	Orphans []any `json:"orphans"`
}

type Option func(*Blueprint)

func WithName(name string) Option {
	return func(b *Blueprint) {
		if name != "" {
			b.Name = name
		}
	}
}

func WithZone(zone string) Option {
	return func(b *Blueprint) {
		if zone != "" {
			b.Metadata.Zone = zone
		}
	}
}

// Build lays the graph out in execution order. Node configs become module
// parameters; the mapper is left empty. Graphs with cycles cannot be exported.
func Build(graph models.Graph, configs map[string]map[string]any, opts ...Option) (*Blueprint, error) {
	err := graph.Validate()
	if err != nil {
		return nil, err
	}

	order, err := planner.Plan(graph)
	if err != nil {
		return nil, fmt.Errorf("failed to order graph for export: %w", err)
	}

	blueprint := &Blueprint{
		Name: DefaultName,
		Flow: make([]Module, 0, len(order)),
		Metadata: BlueprintMetadata{
			Version: 1,
			Scenario: ScenarioSettings{
				Roundtrip:    false,
				MaxErrors:    3,
				AutoCommit:   true,
				Sequential:   false,
				Confidential: false,
			},
			Designer: DesignerMetadata{Orphans: []any{}},
			Zone:     DefaultZone,
		},
	}

	for _, opt := range opts {
		opt(blueprint)
	}

	for i, node := range order {
		parameters, _ := models.CloneValue(configs[node.ID]).(map[string]any)
		if parameters == nil {
			parameters = map[string]any{}
		}

		blueprint.Flow = append(blueprint.Flow, Module{
			ID:         i + 1,
			UUID:       node.ID,
			Module:     node.Module,
			Version:    1,
			Parameters: parameters,
			Mapper:     map[string]any{},
			Metadata:   ModuleMetadata{Designer: Position{X: i * designerSpacing, Y: 0}},
		})
	}

	return blueprint, nil
}

// Workflow exports a stored workflow under its own name.
func Workflow(workflow *models.Workflow, opts ...Option) (*Blueprint, error) {
	return Build(workflow.Graph(), workflow.Config, append([]Option{WithName(workflow.Name)}, opts...)...)
}

// JSON renders a blueprint the way Make's import dialog expects it.
func (b *Blueprint) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blueprint: %w", err)
	}

	return data, nil
}
