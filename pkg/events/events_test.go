package events

import (
	"encoding/json"
	"testing"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ReturnsTypedEvent(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  any
	}{
		{RunStartedEvent, &RunStarted{}},
		{RunFinishedEvent, &RunFinished{}},
		{RunFailedEvent, &RunFailed{}},
		{NodeStartedEvent, &NodeStarted{}},
		{NodeFinishedEvent, &NodeFinished{}},
		{NodeFailedEvent, &NodeFailed{}},
		{NodeIgnoredEvent, &NodeIgnored{}},
	}

	for _, tc := range testCases {
		t.Run(string(tc.eventType), func(t *testing.T) {
			event, ok := New(tc.eventType)
			require.True(t, ok)
			assert.IsType(t, tc.expected, event)
			assert.Equal(t, tc.eventType, event.(interface{ GetType() EventType }).GetType())
		})
	}

	_, ok := New("unknown")
	assert.False(t, ok)
}

func TestNodeFinished_JSON(t *testing.T) {
	event := NodeFinished{
		BaseEvent: NewBaseEvent(NodeFinishedEvent, "run-1", "scen-1"),
		NodeID:    "2",
		Module:    "slack:send",
		Metrics:   models.Metrics{DurationMs: 12, InputCount: 3, OutputCount: 3},
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any

	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "node.finished", decoded["type"])
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, map[string]any{"durationMs": float64(12), "inputCount": float64(3), "outputCount": float64(3)}, decoded["metrics"])
	assert.NotEmpty(t, decoded["id"])
}
