package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/bundleflow/pkg/planner"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/template"
)

// DriverExecutionError is returned when a node's driver fails. It halts the run.
type DriverExecutionError struct {
	NodeID string
	Module string
	Err    error
}

func (e *DriverExecutionError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.NodeID, e.Module, e.Err)
}

func (e *DriverExecutionError) Unwrap() error {
	return e.Err
}

// IsDriverExecution reports whether err came from a failed node.
func IsDriverExecution(err error) bool {
	var target *DriverExecutionError

	return errors.As(err, &target)
}

func IsMissingDriver(err error) bool {
	return errors.Is(err, registry.ErrModuleNotFound)
}

func IsUnresolvedReference(err error) bool {
	return template.IsUnresolvedReference(err)
}

func IsCycle(err error) bool {
	return planner.IsCycle(err)
}
