package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

type WorkflowRepository struct {
	client goredis.UniversalClient
	logger *slog.Logger
	prefix string
}

func NewWorkflowRepository(client goredis.UniversalClient, logger *slog.Logger, prefix string) *WorkflowRepository {
	return &WorkflowRepository{client: client, logger: logger, prefix: prefix}
}

func (r *WorkflowRepository) indexKey() string {
	return r.prefix + ":workflows"
}

func (r *WorkflowRepository) workflowKey(id string) string {
	return r.prefix + ":workflow:" + id
}

func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))
	if len(ids) == 0 {
		return workflows, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.workflowKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load workflows: %w", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index entry without a document; Delete was interrupted.
			r.logger.WarnContext(ctx, "Workflow indexed but not stored", "workflow_id", ids[i])

			continue
		}

		workflow, err := decode(raw)
		if err != nil {
			return nil, persistence.NewWorkflowError("GetAll", ids[i], err)
		}

		workflows = append(workflows, workflow)
	}

	persistence.SortNewestFirst(workflows)

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	raw, err := r.client.Get(ctx, r.workflowKey(id)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	workflow, err := decode(raw)
	if err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	err := persistence.PrepareForSave(workflow, time.Now().UTC())
	if err != nil {
		return err
	}

	data, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, r.workflowKey(workflow.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(), goredis.Z{
			Score:  float64(workflow.CreatedAt.UnixMilli()),
			Member: workflow.ID,
		})

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, r.workflowKey(id))
		pipe.ZRem(ctx, r.indexKey(), id)

		return nil
	})
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}

func decode(raw string) (*models.Workflow, error) {
	var workflow models.Workflow

	err := json.Unmarshal([]byte(raw), &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}

	return &workflow, nil
}
