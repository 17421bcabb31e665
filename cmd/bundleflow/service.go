package main

import (
	"context"
	"log/slog"

	"github.com/dukex/bundleflow/pkg/cmd"
	"github.com/dukex/bundleflow/pkg/services"
)

// workflowService opens the workflow store at databaseURL. The returned func closes it.
func (e *engine) workflowService(ctx context.Context, databaseURL string) (*services.Workflow, func(), error) {
	store, err := cmd.NewPersistence(ctx, e.logger, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	closeStore := func() {
		err := store.Close(context.WithoutCancel(ctx))
		if err != nil {
			e.logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}

	return services.NewWorkflow(store, e.registry, e.executor, e.logger), closeStore, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
