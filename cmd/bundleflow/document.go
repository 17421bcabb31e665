package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/bundleflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// loadWorkflow reads a workflow document. YAML is chosen by extension, JSON otherwise.
// The name is optional for documents that are only planned or run.
func loadWorkflow(path string) (*models.Workflow, error) {
	if path == "" {
		return nil, fmt.Errorf("a workflow document path is required")
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", path, err)
	}

	var workflow models.Workflow

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &workflow)
	default:
		err = json.Unmarshal(data, &workflow)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", path, err)
	}

	if workflow.Name == "" {
		workflow.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return &workflow, nil
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(value)
}
