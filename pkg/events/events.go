// Package events defines the run lifecycle notifications published by the executor.
package events

import (
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

const Topic = "bundleflow.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run lifecycle events.
	RunStartedEvent  EventType = "run.started"
	RunFinishedEvent EventType = "run.finished"
	RunFailedEvent   EventType = "run.failed"

	// Node lifecycle events.
	NodeStartedEvent  EventType = "node.started"
	NodeFinishedEvent EventType = "node.finished"
	NodeFailedEvent   EventType = "node.failed"
	NodeIgnoredEvent  EventType = "node.ignored"
)

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"run_id"`
	ScenarioID string    `json:"scenario_id"`
}

// NewBaseEvent stamps a new event of eventType for a run.
func NewBaseEvent(eventType EventType, runID, scenarioID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		RunID:      runID,
		ScenarioID: scenarioID,
	}
}

type RunStarted struct {
	BaseEvent

	Order []string `json:"order"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunFinished struct {
	BaseEvent

	Succeeded  int   `json:"succeeded"`
	Ignored    int   `json:"ignored"`
	DurationMs int64 `json:"duration_ms"`
}

func (e RunFinished) GetType() EventType {
	return RunFinishedEvent
}

type RunFailed struct {
	BaseEvent

	NodeID string `json:"node_id,omitempty"`
	Error  string `json:"error"`
}

func (e RunFailed) GetType() EventType {
	return RunFailedEvent
}

type NodeStarted struct {
	BaseEvent

	NodeID     string `json:"node_id"`
	Module     string `json:"module"`
	InputCount int    `json:"input_count"`
}

func (e NodeStarted) GetType() EventType {
	return NodeStartedEvent
}

type NodeFinished struct {
	BaseEvent

	NodeID  string         `json:"node_id"`
	Module  string         `json:"module"`
	Metrics models.Metrics `json:"metrics"`
}

func (e NodeFinished) GetType() EventType {
	return NodeFinishedEvent
}

type NodeFailed struct {
	BaseEvent

	NodeID  string         `json:"node_id"`
	Module  string         `json:"module"`
	Error   string         `json:"error"`
	Metrics models.Metrics `json:"metrics"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

// NodeIgnored is published when a node's module has no driver.
type NodeIgnored struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Module string `json:"module"`
}

func (e NodeIgnored) GetType() EventType {
	return NodeIgnoredEvent
}

// New returns an empty event value for eventType, ready to be decoded into.
func New(eventType EventType) (any, bool) {
	switch eventType {
	case RunStartedEvent:
		return &RunStarted{}, true
	case RunFinishedEvent:
		return &RunFinished{}, true
	case RunFailedEvent:
		return &RunFailed{}, true
	case NodeStartedEvent:
		return &NodeStarted{}, true
	case NodeFinishedEvent:
		return &NodeFinished{}, true
	case NodeFailedEvent:
		return &NodeFailed{}, true
	case NodeIgnoredEvent:
		return &NodeIgnored{}, true
	default:
		return nil, false
	}
}
