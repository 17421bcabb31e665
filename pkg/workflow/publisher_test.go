package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/bundleflow/pkg/mocks"
	"github.com/dukex/bundleflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRun_PublishErrorsDoNotFailTheRun(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(errors.New("broker unavailable"))

	graph := models.Graph{
		Nodes: []models.Node{node("A", "m"), node("B", "m")},
		Edges: []models.Edge{edge("A", "B")},
	}

	run, err := NewExecutor(stubFactory{"m": passthrough}, nil, WithPublisher(bus)).Run(context.Background(), graph, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Count(models.StepStatusSuccess))

	// run started, two node started/finished pairs, run finished
	bus.AssertNumberOfCalls(t, "Publish", 6)
}
