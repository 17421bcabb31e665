package persistence

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/google/uuid"
)

// PrepareForSave assigns an id to new workflows, validates it and stamps the timestamps.
func PrepareForSave(workflow *models.Workflow, now time.Time) error {
	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	err := ValidateWorkflowID("Save", workflow.ID)
	if err != nil {
		return err
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return nil
}

// SortNewestFirst orders workflows by creation time, newest first, then by id.
func SortNewestFirst(workflows []*models.Workflow) {
	slices.SortStableFunc(workflows, func(a, b *models.Workflow) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}

		return strings.Compare(a.ID, b.ID)
	})
}
