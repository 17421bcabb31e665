package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/persistence"
	"gopkg.in/yaml.v3"
)

// WorkflowRepository keeps each workflow in <dir>/<id>.json. Documents ending in
// .yaml or .yml are read too, so hand-written workflows can sit next to saved ones.
type WorkflowRepository struct {
	dir string
	now func() time.Time
}

func NewWorkflowRepository(dir string) *WorkflowRepository {
	return &WorkflowRepository{
		dir: dir,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *WorkflowRepository) GetAll(_ context.Context) ([]*models.Workflow, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*models.Workflow{}, nil
		}

		return nil, fmt.Errorf("failed to read workflows directory: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !isDocument(entry.Name()) {
			continue
		}

		workflow, err := r.read(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	persistence.SortNewestFirst(workflows)

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	err := persistence.ValidateWorkflowID("GetByID", id)
	if err != nil {
		return nil, err
	}

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		workflow, err := r.read(filepath.Join(r.dir, id+ext))
		if err == nil {
			return workflow, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.NewWorkflowError("GetByID", id, err)
		}
	}

	return nil, persistence.NewWorkflowError("GetByID", id, persistence.ErrWorkflowNotFound)
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	err := persistence.PrepareForSave(workflow, r.now())
	if err != nil {
		return err
	}

	err = os.MkdirAll(r.dir, 0750)
	if err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	err = os.WriteFile(filepath.Join(r.dir, workflow.ID+".json"), data, 0600)
	if err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

// Delete removes every document stored for id. Missing documents are not an error.
func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := persistence.ValidateWorkflowID("Delete", id)
	if err != nil {
		return err
	}

	for _, ext := range []string{".json", ".yaml", ".yml"} {
		err := os.Remove(filepath.Join(r.dir, id+ext))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return persistence.NewWorkflowError("Delete", id, err)
		}
	}

	return nil
}

func (r *WorkflowRepository) read(path string) (*models.Workflow, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var workflow models.Workflow

	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &workflow)
	} else {
		err = yaml.Unmarshal(data, &workflow)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", filepath.Base(path), err)
	}

	if workflow.ID == "" {
		workflow.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &workflow, nil
}

func isDocument(name string) bool {
	switch filepath.Ext(name) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
