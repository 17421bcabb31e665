// Package drivers builds module drivers from registry entries.
package drivers

import (
	"maps"
	"strings"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/protocol"
	"github.com/dukex/bundleflow/pkg/registry"
)

const (
	AppBuiltin = "builtin"
	AppUtil    = "util"
)

// Constructor builds the driver for a registered module.
type Constructor func(moduleID string, entry registry.Entry) protocol.Driver

// Option configures a Factory.
type Option func(*Factory)

// WithDriver selects ctor for moduleID instead of the generic driver.
func WithDriver(moduleID string, ctor Constructor) Option {
	return func(f *Factory) {
		f.constructors[moduleID] = ctor
	}
}

// WithFallback replaces the constructor used for modules without a specialized driver.
func WithFallback(ctor Constructor) Option {
	return func(f *Factory) {
		f.fallback = ctor
	}
}

// DefaultConstructors returns the specialized flow-control drivers keyed by module id.
func DefaultConstructors() map[string]Constructor {
	return map[string]Constructor{
		"builtin:sleep":           NewSleepDriver,
		"util:set-variable":       NewSetVariableDriver,
		"util:get-variable":       NewGetVariableDriver,
		"builtin:iterator":        NewIteratorDriver,
		"builtin:BasicIterator":   NewIteratorDriver,
		"builtin:BasicFeeder":     NewIteratorDriver,
		"builtin:aggregator":      NewAggregatorDriver,
		"builtin:BasicAggregator": NewAggregatorDriver,
		"builtin:router":          NewRouterDriver,
		"builtin:BasicRouter":     NewRouterDriver,
	}
}

// Factory turns module identifiers into drivers. Its constructor table is fixed at
// construction, so it is safe for concurrent use.
type Factory struct {
	registry     *registry.Registry
	constructors map[string]Constructor
	fallback     Constructor
}

var _ protocol.DriverFactory = (*Factory)(nil)

// NewFactory creates a factory over reg with the default constructors.
func NewFactory(reg *registry.Registry, opts ...Option) *Factory {
	factory := &Factory{
		registry:     reg,
		constructors: DefaultConstructors(),
		fallback:     NewGenericDriver,
	}

	for _, opt := range opts {
		opt(factory)
	}

	factory.constructors = maps.Clone(factory.constructors)

	return factory
}

// CreateDriver returns the driver for moduleID or a *MissingDriverError when the
// module is not registered.
func (f *Factory) CreateDriver(moduleID string) (protocol.Driver, error) {
	if f.registry == nil {
		return nil, &MissingDriverError{Module: moduleID}
	}

	entry, ok := f.registry.Get(moduleID)
	if !ok {
		return nil, &MissingDriverError{Module: moduleID}
	}

	if ctor, ok := f.constructors[moduleID]; ok {
		return ctor(moduleID, entry), nil
	}

	return f.fallback(moduleID, entry), nil
}

// IsFlowControl reports whether app only routes bundles without touching an external service.
func IsFlowControl(app string) bool {
	return app == AppBuiltin || app == AppUtil
}

func metadataFor(moduleID string, entry registry.Entry) models.DriverMetadata {
	app := entry.App
	if app == "" {
		app, _, _ = strings.Cut(moduleID, ":")
	}

	return models.DriverMetadata{Name: moduleID, App: app, Label: entry.Label}
}

type base struct {
	metadata models.DriverMetadata
}

func (b base) Metadata() models.DriverMetadata {
	return b.metadata
}

func scopeOf(execCtx *models.ExecutionContext) models.ScopeReader {
	if execCtx == nil {
		return models.Scope{}
	}

	return execCtx
}
