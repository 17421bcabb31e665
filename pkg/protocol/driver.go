// Package protocol defines the interfaces and contracts for pluggable module drivers.
package protocol

import (
	"context"

	"github.com/dukex/bundleflow/pkg/models"
)

// Driver is the runtime object implementing a module. The engine treats every
// integration and every flow-control primitive through this contract only.
type Driver interface {
	// Metadata returns the module name, app and label the driver was built for.
	Metadata() models.DriverMetadata

	// Execute consumes the node's input bundles and returns its output bundles.
	// config is the caller-supplied per-node parameter map. Drivers may read the
	// execution context's scope and globals and write globals; they never write scope.
	Execute(ctx context.Context, in []models.Bundle, config map[string]any, execCtx *models.ExecutionContext) ([]models.Bundle, error)
}

// DriverFactory builds drivers by module identifier.
type DriverFactory interface {
	// CreateDriver returns a driver for moduleID or an error matching
	// drivers.ErrModuleNotFound when the module is unknown.
	CreateDriver(moduleID string) (Driver, error)
}
