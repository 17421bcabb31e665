// Package file provides file-based persistence: one JSON or YAML document per workflow.
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/bundleflow/pkg/persistence"
)

type Persistence struct {
	root         string
	workflowRepo *WorkflowRepository
}

// NewPersistence stores workflows under <root>/workflows. A "file://" prefix on root is ignored.
func NewPersistence(root string) *Persistence {
	root = strings.TrimPrefix(root, "file://")

	return &Persistence{
		root:         root,
		workflowRepo: NewWorkflowRepository(filepath.Join(root, "workflows")),
	}
}

func (p *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return p.workflowRepo
}

// HealthCheck verifies the storage root exists or can be created.
func (p *Persistence) HealthCheck(_ context.Context) error {
	err := os.MkdirAll(p.root, 0750)
	if err != nil {
		return fmt.Errorf("file persistence root %s is not usable: %w", p.root, err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}
