// Package planner orders workflow nodes so every node follows its predecessors.
package planner

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/bundleflow/pkg/models"
)

// ErrCycle indicates the graph contains at least one cycle.
var ErrCycle = errors.New("graph contains a cycle")

// CycleError lists the nodes that could not be scheduled, sorted by id.
type CycleError struct {
	NodeIDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCycle.Error(), strings.Join(e.NodeIDs, ", "))
}

func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// IsCycle reports whether err is a cycle error.
func IsCycle(err error) bool {
	return errors.Is(err, ErrCycle)
}

// Plan returns the nodes of graph in topological order using Kahn's algorithm.
// Ties are broken by node-list order and successors are visited in edge order.
// Edges whose endpoints are not nodes of the graph are skipped. When the graph has
// a cycle the nodes on or behind it are left out and a *CycleError is returned
// together with the partial order.
func Plan(graph models.Graph) ([]models.Node, error) {
	index := make(map[string]int, len(graph.Nodes))
	for i, node := range graph.Nodes {
		if _, ok := index[node.ID]; !ok {
			index[node.ID] = i
		}
	}

	indegree := make([]int, len(graph.Nodes))
	successors := make([][]int, len(graph.Nodes))

	for _, edge := range graph.Edges {
		source, okSource := index[edge.Source]
		target, okTarget := index[edge.Target]

		if !okSource || !okTarget {
			continue
		}

		successors[source] = append(successors[source], target)
		indegree[target]++
	}

	queue := make([]int, 0, len(graph.Nodes))

	for i, node := range graph.Nodes {
		if index[node.ID] == i && indegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]models.Node, 0, len(graph.Nodes))
	visited := make([]bool, len(graph.Nodes))

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		visited[current] = true

		order = append(order, graph.Nodes[current])

		for _, next := range successors[current] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) == len(index) {
		return order, nil
	}

	var stuck []string

	for i, node := range graph.Nodes {
		if index[node.ID] == i && !visited[i] {
			stuck = append(stuck, node.ID)
		}
	}

	slices.Sort(stuck)

	return order, &CycleError{NodeIDs: stuck}
}
