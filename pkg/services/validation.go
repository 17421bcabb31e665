package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/planner"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/template"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about a graph. NodeID is empty for graph-level findings.
type Issue struct {
	NodeID   string   `json:"node_id,omitempty"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

type ValidationReport struct {
	Valid  bool     `json:"valid"`
	Order  []string `json:"order"`
	Issues []Issue  `json:"issues"`
}

func (r *ValidationReport) add(nodeID string, severity Severity, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{NodeID: nodeID, Severity: severity, Message: fmt.Sprintf(format, args...)})

	if severity == SeverityError {
		r.Valid = false
	}
}

// Warnings returns the findings that do not prevent a run.
func (r *ValidationReport) Warnings() []Issue {
	var warnings []Issue

	for _, issue := range r.Issues {
		if issue.Severity == SeverityWarning {
			warnings = append(warnings, issue)
		}
	}

	return warnings
}

// ValidateGraph reports what would go wrong if graph ran with configs:
// structural errors, cycles, node configs that break their module's parameter
// schema and references to nodes that do not run earlier. Modules unknown to
// the registry are warnings since the executor ignores those nodes.
func ValidateGraph(reg *registry.Registry, graph models.Graph, configs map[string]map[string]any) *ValidationReport {
	report := &ValidationReport{Valid: true, Order: []string{}, Issues: []Issue{}}

	err := graph.Validate()
	if err != nil {
		report.add("", SeverityError, "%s", err.Error())

		return report
	}

	order, err := planner.Plan(graph)
	for _, node := range order {
		report.Order = append(report.Order, node.ID)
	}

	var cycleErr *planner.CycleError
	if errors.As(err, &cycleErr) {
		report.add("", SeverityError, "cycle between nodes %s", strings.Join(cycleErr.NodeIDs, ", "))
	}

	nodes := graph.NodeSet()

	for _, edge := range graph.Edges {
		_, sourceOK := nodes[edge.Source]
		_, targetOK := nodes[edge.Target]

		if !sourceOK || !targetOK {
			report.add("", SeverityWarning, "edge %s -> %s references an unknown node and is skipped", edge.Source, edge.Target)
		}
	}

	preds := graph.PredecessorIndex()

	for _, node := range graph.Nodes {
		checkNode(report, reg, nodes, preds, node, configs[node.ID])
	}

	for _, nodeID := range sortedKeys(configs) {
		if _, ok := nodes[nodeID]; !ok {
			report.add(nodeID, SeverityWarning, "config given for unknown node %s", nodeID)
		}
	}

	return report
}

func checkNode(
	report *ValidationReport,
	reg *registry.Registry,
	nodes map[string]struct{},
	preds map[string][]string,
	node models.Node,
	config map[string]any,
) {
	if reg != nil {
		if _, ok := reg.Get(node.Module); !ok {
			report.add(node.ID, SeverityWarning, "module %s is not in the registry; the node will be ignored", node.Module)
		} else {
			err := reg.ValidateConfig(node.Module, config)

			var configErr *registry.ConfigError
			if errors.As(err, &configErr) {
				for _, problem := range configErr.Problems {
					report.add(node.ID, SeverityError, "%s", problem)
				}
			} else if err != nil {
				report.add(node.ID, SeverityError, "%s", err.Error())
			}
		}
	}

	upstream := ancestors(preds, node.ID)

	for _, ref := range template.References(config) {
		_, known := nodes[ref.NodeID]

		switch {
		case !known:
			report.add(node.ID, SeverityError, "%s references unknown node %s", ref.Token, ref.NodeID)
		case !upstream[ref.NodeID]:
			report.add(node.ID, SeverityError, "%s references node %s, which does not run before %s", ref.Token, ref.NodeID, node.ID)
		}
	}
}

// ancestors returns every node with a path to id.
func ancestors(preds map[string][]string, id string) map[string]bool {
	seen := map[string]bool{}
	queue := []string{id}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, pred := range preds[current] {
			if !seen[pred] {
				seen[pred] = true
				queue = append(queue, pred)
			}
		}
	}

	return seen
}

func sortedKeys(configs map[string]map[string]any) []string {
	keys := make([]string, 0, len(configs))
	for key := range configs {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
