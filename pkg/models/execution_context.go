package models

import (
	"errors"
	"fmt"
	"maps"
	"sync"
)

// ErrScopeAlreadyRecorded indicates a second write to a node's recorded output.
var ErrScopeAlreadyRecorded = errors.New("node output already recorded")

// LogLevel is the severity accepted by a LogFunc.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFunc is the logger sink invoked synchronously by the engine and drivers.
type LogFunc func(level LogLevel, message string, data any)

// ScopeReader gives read access to recorded node outputs.
type ScopeReader interface {
	Output(nodeID string) ([]Bundle, bool)
}

// Scope is a plain map of node outputs.
type Scope map[string][]Bundle

// Output returns the recorded output of nodeID.
func (s Scope) Output(nodeID string) ([]Bundle, bool) {
	bundles, ok := s[nodeID]

	return bundles, ok
}

// ExecutionContext is the state of a single run. It is created at run start and
// discarded at run end.
type ExecutionContext struct {
	ID         string `json:"id"`
	ScenarioID string `json:"scenario_id"`

	log LogFunc

	scopeMu sync.RWMutex
	scope   Scope

	globalsMu sync.Mutex
	globals   map[string]any
}

// Recorder stores the output of a node in the scope of one ExecutionContext.
// Each node id can be recorded once.
type Recorder func(nodeID string, bundles []Bundle) error

// NewExecutionContext creates an empty context and the only Recorder able to
// write its scope. Drivers receive the context; the recorder stays with the
// engine. A nil log discards messages.
func NewExecutionContext(id, scenarioID string, log LogFunc) (*ExecutionContext, Recorder) {
	if log == nil {
		log = func(LogLevel, string, any) {}
	}

	execCtx := &ExecutionContext{
		ID:         id,
		ScenarioID: scenarioID,
		log:        log,
		scope:      make(Scope),
		globals:    make(map[string]any),
	}

	return execCtx, execCtx.record
}

// Log forwards a message to the run's logger sink.
func (c *ExecutionContext) Log(level LogLevel, message string, data any) {
	c.log(level, message, data)
}

func (c *ExecutionContext) record(nodeID string, bundles []Bundle) error {
	c.scopeMu.Lock()
	defer c.scopeMu.Unlock()

	if _, ok := c.scope[nodeID]; ok {
		return fmt.Errorf("%w: %s", ErrScopeAlreadyRecorded, nodeID)
	}

	c.scope[nodeID] = CloneBundles(bundles)

	return nil
}

// Output returns a deep copy of the recorded output of nodeID.
func (c *ExecutionContext) Output(nodeID string) ([]Bundle, bool) {
	c.scopeMu.RLock()
	defer c.scopeMu.RUnlock()

	bundles, ok := c.scope[nodeID]
	if !ok {
		return nil, false
	}

	return CloneBundles(bundles), true
}

// Scope returns a deep copy of the recorded outputs keyed by node id.
func (c *ExecutionContext) Scope() Scope {
	c.scopeMu.RLock()
	defer c.scopeMu.RUnlock()

	scope := make(Scope, len(c.scope))
	for nodeID, bundles := range c.scope {
		scope[nodeID] = CloneBundles(bundles)
	}

	return scope
}

// Global returns the value of a shared variable.
func (c *ExecutionContext) Global(key string) (any, bool) {
	c.globalsMu.Lock()
	defer c.globalsMu.Unlock()

	value, ok := c.globals[key]

	return value, ok
}

// SetGlobal writes a shared variable.
func (c *ExecutionContext) SetGlobal(key string, value any) {
	c.globalsMu.Lock()
	defer c.globalsMu.Unlock()

	c.globals[key] = value
}

// Globals returns a snapshot of all shared variables.
func (c *ExecutionContext) Globals() map[string]any {
	c.globalsMu.Lock()
	defer c.globalsMu.Unlock()

	return maps.Clone(c.globals)
}
