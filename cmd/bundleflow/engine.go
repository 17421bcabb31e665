package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/bundleflow/pkg/cmd"
	"github.com/dukex/bundleflow/pkg/drivers"
	"github.com/dukex/bundleflow/pkg/eventbus"
	"github.com/dukex/bundleflow/pkg/log"
	"github.com/dukex/bundleflow/pkg/otelhelper"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// engine holds everything a command needs to plan and run graphs.
type engine struct {
	logger   *slog.Logger
	registry *registry.Registry
	executor *workflow.Executor
	closers  []func(context.Context) error
}

func newEngine(ctx context.Context, command *cli.Command) (*engine, error) {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("bundleflow")

	reg, err := cmd.NewRegistry(logger, command.String("registry-path"))
	if err != nil {
		return nil, err
	}

	e := &engine{logger: logger, registry: reg}

	opts := []workflow.Option{
		workflow.WithNodeTimeout(command.Duration("node-timeout")),
		workflow.WithConcurrency(command.Int("concurrency")),
	}

	if command.Bool("otel-enabled") {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "bundleflow")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		opts = append(opts, workflow.WithTracer(tracer))
		e.closers = append(e.closers, shutdown)
	}

	bus, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), logger)
	if err != nil {
		e.Close(ctx)

		return nil, err
	}

	if bus != nil {
		opts = append(opts, workflow.WithPublisher(bus))
		e.closers = append(e.closers, closeBus(bus))
	}

	e.executor = workflow.NewExecutor(drivers.NewFactory(reg), logger, opts...)

	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *engine) Close(ctx context.Context) {
	for i := len(e.closers) - 1; i >= 0; i-- {
		err := e.closers[i](ctx)
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to release resource", "error", err)
		}
	}

	e.closers = nil
}

func closeBus(bus eventbus.EventBus) func(context.Context) error {
	return func(context.Context) error {
		return bus.Close()
	}
}
