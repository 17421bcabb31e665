// Package workflow runs graphs of module drivers, moving bundles along edges in
// dependency order.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/bundleflow/pkg/eventbus"
	"github.com/dukex/bundleflow/pkg/events"
	"github.com/dukex/bundleflow/pkg/log"
	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/otelhelper"
	"github.com/dukex/bundleflow/pkg/planner"
	"github.com/dukex/bundleflow/pkg/protocol"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type Executor struct {
	factory     protocol.DriverFactory
	logger      *slog.Logger
	sink        models.LogFunc
	tracer      trace.Tracer
	publisher   eventbus.EventPublisher
	nodeTimeout time.Duration
	concurrency int
}

type Option func(*Executor)

// WithNodeTimeout bounds every driver call. Zero disables the bound.
func WithNodeTimeout(timeout time.Duration) Option {
	return func(e *Executor) {
		e.nodeTimeout = timeout
	}
}

// WithConcurrency runs up to n independent nodes at once. n <= 1 keeps the
// sequential scheduler.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		e.concurrency = n
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(e *Executor) {
		e.publisher = publisher
	}
}

// WithLogSink replaces the sink receiving run and node messages.
func WithLogSink(sink models.LogFunc) Option {
	return func(e *Executor) {
		if sink != nil {
			e.sink = sink
		}
	}
}

func NewExecutor(factory protocol.DriverFactory, logger *slog.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	logger = logger.With("module", "workflow_executor")

	executor := &Executor{
		factory:     factory,
		logger:      logger,
		sink:        log.Sink(logger),
		tracer:      otelhelper.NoopTracer(),
		concurrency: 1,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Run executes graph once. configs holds the parameter values of each node keyed
// by node id. The returned run always carries the results gathered so far, also
// when an error is returned.
func (e *Executor) Run(ctx context.Context, graph models.Graph, configs map[string]map[string]any) (*models.Run, error) {
	run := &models.Run{
		ID:         uuid.NewString(),
		ScenarioID: uuid.NewString(),
		Order:      []string{},
		Results:    make(map[string]*models.StepResult),
		StartedAt:  time.Now().UTC(),
	}

	defer func() {
		run.FinishedAt = time.Now().UTC()
	}()

	err := graph.Validate()
	if err != nil {
		return run, fmt.Errorf("invalid graph: %w", err)
	}

	order, err := planner.Plan(graph)
	if err != nil {
		e.sink(models.LogLevelError, "Graph cannot be planned", map[string]any{"error": err.Error()})

		return run, err
	}

	for _, node := range order {
		run.Order = append(run.Order, node.ID)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.ScenarioIDKey, run.ScenarioID),
		attribute.Int(otelhelper.NodeCountKey, len(order)),
	)
	defer span.End()

	execCtx, record := models.NewExecutionContext(run.ID, run.ScenarioID, e.sink)

	execCtx.Log(models.LogLevelInfo, "Starting scenario run", map[string]any{
		"run_id":      run.ID,
		"scenario_id": run.ScenarioID,
		"nodes":       len(order),
	})
	e.publish(ctx, run.ID, events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, run.ID, run.ScenarioID),
		Order:     run.Order,
	})

	state := &runState{run: run, record: record, preds: graph.PredecessorIndex()}

	if e.concurrency > 1 {
		err = e.runConcurrent(ctx, order, configs, execCtx, state)
	} else {
		err = e.runSequential(ctx, order, configs, execCtx, state)
	}

	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.RunIDKey, run.ID))

		failed := events.RunFailed{
			BaseEvent: events.NewBaseEvent(events.RunFailedEvent, run.ID, run.ScenarioID),
			Error:     err.Error(),
		}

		var driverErr *DriverExecutionError
		if errors.As(err, &driverErr) {
			failed.NodeID = driverErr.NodeID
		}

		e.publish(ctx, run.ID, failed)

		return run, err
	}

	e.publish(ctx, run.ID, events.RunFinished{
		BaseEvent:  events.NewBaseEvent(events.RunFinishedEvent, run.ID, run.ScenarioID),
		Succeeded:  run.Count(models.StepStatusSuccess),
		Ignored:    run.Count(models.StepStatusIgnored),
		DurationMs: time.Since(run.StartedAt).Milliseconds(),
	})

	return run, nil
}

func (e *Executor) runSequential(
	ctx context.Context,
	order []models.Node,
	configs map[string]map[string]any,
	execCtx *models.ExecutionContext,
	state *runState,
) error {
	for _, node := range order {
		if err := ctx.Err(); err != nil {
			execCtx.Log(models.LogLevelWarn, "Run cancelled", map[string]any{"next_node": node.ID})

			return err
		}

		result, err := e.executeNode(ctx, node, configs[node.ID], execCtx, state)
		state.store(result)

		if err != nil {
			return err
		}
	}

	return nil
}

// runConcurrent starts a node once every predecessor finished. The first failure
// cancels the group context: nodes not yet started are skipped and running
// siblings see their context cancelled.
func (e *Executor) runConcurrent(
	ctx context.Context,
	order []models.Node,
	configs map[string]map[string]any,
	execCtx *models.ExecutionContext,
	state *runState,
) error {
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)

	done := make(map[string]chan struct{}, len(order))
	for _, node := range order {
		done[node.ID] = make(chan struct{})
	}

	for _, node := range order {
		if groupCtx.Err() != nil {
			break
		}

		waitFor := make([]chan struct{}, 0)
		for _, predecessor := range state.preds[node.ID] {
			waitFor = append(waitFor, done[predecessor])
		}

		group.Go(func() error {
			for _, ch := range waitFor {
				select {
				case <-ch:
				case <-groupCtx.Done():
					return nil
				}
			}

			if groupCtx.Err() != nil {
				return nil
			}

			result, err := e.executeNode(groupCtx, node, configs[node.ID], execCtx, state)
			state.store(result)

			if err != nil {
				return err
			}

			close(done[node.ID])

			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return err
	}

	return ctx.Err()
}

func (e *Executor) executeNode(
	ctx context.Context,
	node models.Node,
	config map[string]any,
	execCtx *models.ExecutionContext,
	state *runState,
) (*models.StepResult, error) {
	driver, err := e.factory.CreateDriver(node.Module)
	if err != nil {
		if IsMissingDriver(err) {
			execCtx.Log(models.LogLevelWarn, fmt.Sprintf("Missing driver for %s, node %s ignored", node.Module, node.ID), map[string]any{
				"node_id": node.ID,
				"module":  node.Module,
			})
			e.publish(ctx, execCtx.ID, events.NodeIgnored{
				BaseEvent: events.NewBaseEvent(events.NodeIgnoredEvent, execCtx.ID, execCtx.ScenarioID),
				NodeID:    node.ID,
				Module:    node.Module,
			})

			return &models.StepResult{
				NodeID:        node.ID,
				Module:        node.Module,
				Status:        models.StepStatusIgnored,
				OutputBundles: []models.Bundle{},
			}, nil
		}

		return e.fail(ctx, node, execCtx, models.Metrics{}, err)
	}

	inputs := resolveInputs(state.preds[node.ID], execCtx)

	execCtx.Log(models.LogLevelInfo, "Executing node "+node.ID, map[string]any{
		"node_id":     node.ID,
		"module":      node.Module,
		"input_count": len(inputs),
	})
	e.publish(ctx, execCtx.ID, events.NodeStarted{
		BaseEvent:  events.NewBaseEvent(events.NodeStartedEvent, execCtx.ID, execCtx.ScenarioID),
		NodeID:     node.ID,
		Module:     node.Module,
		InputCount: len(inputs),
	})

	nodeCtx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.RunIDKey, execCtx.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.ModuleKey, node.Module),
		attribute.String(otelhelper.AppKey, driver.Metadata().App),
		attribute.Int(otelhelper.InputCountKey, len(inputs)),
	)
	defer span.End()

	if e.nodeTimeout > 0 {
		var cancel context.CancelFunc

		nodeCtx, cancel = context.WithTimeout(nodeCtx, e.nodeTimeout)
		defer cancel()
	}

	start := time.Now()
	outputs, err := driver.Execute(nodeCtx, inputs, config, execCtx)
	metrics := models.Metrics{
		DurationMs: time.Since(start).Milliseconds(),
		InputCount: len(inputs),
	}

	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.NodeIDKey, node.ID))

		return e.fail(ctx, node, execCtx, metrics, err)
	}

	if outputs == nil {
		outputs = []models.Bundle{}
	}

	metrics.OutputCount = len(outputs)
	span.SetAttributes(attribute.Int(otelhelper.OutputCountKey, len(outputs)))

	err = state.record(node.ID, outputs)
	if err != nil {
		return e.fail(ctx, node, execCtx, metrics, err)
	}

	execCtx.Log(models.LogLevelInfo, fmt.Sprintf("Node %s finished. Out: %d bundles", node.ID, len(outputs)), map[string]any{
		"node_id":      node.ID,
		"output_count": len(outputs),
		"duration_ms":  metrics.DurationMs,
	})
	e.publish(ctx, execCtx.ID, events.NodeFinished{
		BaseEvent: events.NewBaseEvent(events.NodeFinishedEvent, execCtx.ID, execCtx.ScenarioID),
		NodeID:    node.ID,
		Module:    node.Module,
		Metrics:   metrics,
	})

	return &models.StepResult{
		NodeID:        node.ID,
		Module:        node.Module,
		Status:        models.StepStatusSuccess,
		OutputBundles: outputs,
		Metrics:       metrics,
	}, nil
}

func (e *Executor) fail(
	ctx context.Context,
	node models.Node,
	execCtx *models.ExecutionContext,
	metrics models.Metrics,
	cause error,
) (*models.StepResult, error) {
	err := &DriverExecutionError{NodeID: node.ID, Module: node.Module, Err: cause}

	execCtx.Log(models.LogLevelError, fmt.Sprintf("Node %s failed", node.ID), map[string]any{
		"node_id": node.ID,
		"module":  node.Module,
		"error":   cause.Error(),
	})
	e.publish(ctx, execCtx.ID, events.NodeFailed{
		BaseEvent: events.NewBaseEvent(events.NodeFailedEvent, execCtx.ID, execCtx.ScenarioID),
		NodeID:    node.ID,
		Module:    node.Module,
		Error:     cause.Error(),
		Metrics:   metrics,
	})

	return &models.StepResult{
		NodeID:        node.ID,
		Module:        node.Module,
		Status:        models.StepStatusError,
		OutputBundles: []models.Bundle{},
		Metrics:       metrics,
		Error:         cause.Error(),
		Err:           err,
	}, err
}

// resolveInputs concatenates, in edge order, the recorded outputs of the node's
// predecessors. A node without predecessors receives one empty bundle. Output
// returns copies, so a driver cannot alter an upstream node's recorded output.
func resolveInputs(predecessors []string, execCtx *models.ExecutionContext) []models.Bundle {
	if len(predecessors) == 0 {
		return models.TriggerBundles()
	}

	inputs := make([]models.Bundle, 0)

	for _, predecessor := range predecessors {
		outputs, ok := execCtx.Output(predecessor)
		if !ok {
			continue
		}

		inputs = append(inputs, outputs...)
	}

	return inputs
}

func (e *Executor) publish(ctx context.Context, runID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, runID, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish run event", "event_type", event.GetType(), "error", err)
	}
}

// runState is owned by the executor for one run. Only it holds the scope recorder.
type runState struct {
	mu     sync.Mutex
	run    *models.Run
	record models.Recorder
	preds  map[string][]string
}

func (s *runState) store(result *models.StepResult) {
	if result == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.run.Results[result.NodeID] = result
}
