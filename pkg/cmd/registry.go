// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/dukex/bundleflow/pkg/drivers"
	"github.com/dukex/bundleflow/pkg/registry"
)

// NewRegistry loads the registry document at path, if any, on top of the builtin
// flow-control modules.
func NewRegistry(logger *slog.Logger, path string) (*registry.Registry, error) {
	reg, err := registry.New(drivers.BuiltinEntries())
	if err != nil {
		return nil, err
	}

	if path != "" {
		loaded, err := registry.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load registry %s: %w", path, err)
		}

		reg = reg.Merge(loaded)
	}

	logger.Info("Registry loaded", "path", path, "modules", reg.Len(), "apps", len(reg.Apps()))

	return reg, nil
}
