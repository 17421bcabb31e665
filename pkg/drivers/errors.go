package drivers

import (
	"errors"
	"fmt"

	"github.com/dukex/bundleflow/pkg/registry"
)

var (
	// ErrModuleNotFound is returned, wrapped, when no registry entry exists for a module.
	ErrModuleNotFound = registry.ErrModuleNotFound

	ErrInvalidDriverConfig = errors.New("invalid driver config")
	ErrNoExecutionContext  = errors.New("driver requires an execution context")
)

// MissingDriverError is returned by the factory for unregistered modules.
type MissingDriverError struct {
	Module string
}

func (e *MissingDriverError) Error() string {
	return fmt.Sprintf("no driver for module %s", e.Module)
}

func (e *MissingDriverError) Unwrap() error {
	return ErrModuleNotFound
}

// IsMissingDriver reports whether err means a module has no driver.
func IsMissingDriver(err error) bool {
	return errors.Is(err, ErrModuleNotFound)
}
