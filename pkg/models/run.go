package models

import (
	"time"
)

// StepStatus defines the terminal state of a node within a run.
type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusError   StepStatus = "error"
	StepStatusIgnored StepStatus = "ignored" // No driver could be built for the node's module
)

// Metrics is the per-node telemetry of a run.
type Metrics struct {
	DurationMs  int64 `json:"durationMs"`
	InputCount  int   `json:"inputCount"`
	OutputCount int   `json:"outputCount"`
}

// StepResult represents the result of one node execution.
type StepResult struct {
	NodeID        string     `json:"nodeId"`
	Module        string     `json:"module"`
	Status        StepStatus `json:"status"`
	OutputBundles []Bundle   `json:"outputBundles"`
	Metrics       Metrics    `json:"metrics"`
	Error         string     `json:"error,omitempty"`
	Err           error      `json:"-"`
}

// Run is the final artifact of executing a graph.
type Run struct {
	ID         string                 `json:"id"`
	ScenarioID string                 `json:"scenarioId"`
	Order      []string               `json:"order"`
	Results    map[string]*StepResult `json:"results"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt time.Time              `json:"finishedAt"`
}

// Failed reports whether any node of the run ended with an error.
func (r *Run) Failed() bool {
	for _, result := range r.Results {
		if result.Status == StepStatusError {
			return true
		}
	}

	return false
}

// Count returns how many results have the given status.
func (r *Run) Count(status StepStatus) int {
	n := 0

	for _, result := range r.Results {
		if result.Status == status {
			n++
		}
	}

	return n
}
