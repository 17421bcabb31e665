// Package redis stores workflow documents in Redis: one JSON string per workflow
// plus a sorted set indexing ids by creation time.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/bundleflow/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "bundleflow"

type Persistence struct {
	client       *goredis.Client
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
}

// NewPersistence connects to a redis:// URL and checks the connection.
func NewPersistence(ctx context.Context, logger *slog.Logger, url string) (*Persistence, error) {
	options, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := goredis.NewClient(options)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	logger = logger.With("module", "redis_persistence")

	return &Persistence{
		client:       client,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(client, logger, defaultPrefix),
	}, nil
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	err := p.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

// IsRedisURL reports whether url selects this backend.
func IsRedisURL(url string) bool {
	return strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://")
}
