package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrDuplicateNode indicates two nodes in a graph share the same id.
var ErrDuplicateNode = errors.New("duplicate node id")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Node is one step in a workflow, bound to a module identifier.
type Node struct {
	ID     string `json:"id"     yaml:"id"     validate:"required"`
	Module string `json:"module" yaml:"module" validate:"required"`
}

// Edge declares that Target consumes the output of Source.
type Edge struct {
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
}

// Graph is a plain node/edge list as supplied by a graph authoring surface.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"dive"`
	Edges []Edge `json:"edges" yaml:"edges" validate:"dive"`
}

// Validate checks required fields and node id uniqueness.
// Edges referencing unknown nodes are tolerated; they never take part in planning.
func (g Graph) Validate() error {
	err := validate.Struct(g)
	if err != nil {
		return fmt.Errorf("invalid graph: %w", err)
	}

	seen := make(map[string]struct{}, len(g.Nodes))
	for _, node := range g.Nodes {
		if _, ok := seen[node.ID]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
		}

		seen[node.ID] = struct{}{}
	}

	return nil
}

// NodeSet returns the ids of all nodes of the graph.
func (g Graph) NodeSet() map[string]struct{} {
	set := make(map[string]struct{}, len(g.Nodes))
	for _, node := range g.Nodes {
		set[node.ID] = struct{}{}
	}

	return set
}

// Predecessors returns the sources of all edges into id, in edge-insertion order.
// Edges whose source is not a node of the graph are skipped.
func (g Graph) Predecessors(id string) []string {
	nodes := g.NodeSet()

	var preds []string

	for _, edge := range g.Edges {
		if _, ok := nodes[edge.Source]; ok && edge.Target == id {
			preds = append(preds, edge.Source)
		}
	}

	return preds
}

// Successors returns the targets of all edges out of id, in edge-insertion order.
func (g Graph) Successors(id string) []string {
	nodes := g.NodeSet()

	var succs []string

	for _, edge := range g.Edges {
		if _, ok := nodes[edge.Target]; ok && edge.Source == id {
			succs = append(succs, edge.Target)
		}
	}

	return succs
}

// PredecessorIndex returns Predecessors for every node in one pass over the edges.
// Nodes without predecessors have no entry.
func (g Graph) PredecessorIndex() map[string][]string {
	nodes := g.NodeSet()
	index := make(map[string][]string, len(g.Nodes))

	for _, edge := range g.Edges {
		_, sourceOK := nodes[edge.Source]
		_, targetOK := nodes[edge.Target]

		if sourceOK && targetOK {
			index[edge.Target] = append(index[edge.Target], edge.Source)
		}
	}

	return index
}
