// Package registry provides the read-only module catalog consumed by the driver factory.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// ErrModuleNotFound indicates a module identifier has no registry entry.
var ErrModuleNotFound = errors.New("module not found")

// Parameter describes the shape of one configuration field of a module.
type Parameter struct {
	Type      string   `json:"type"                yaml:"type"`
	Label     string   `json:"label"               yaml:"label"`
	Required  bool     `json:"required,omitempty"  yaml:"required,omitempty"`
	Default   any      `json:"default,omitempty"   yaml:"default,omitempty"`
	Options   []string `json:"options,omitempty"   yaml:"options,omitempty"`
	Multiline bool     `json:"multiline,omitempty" yaml:"multiline,omitempty"`
}

// Entry is the registry record of a module.
type Entry struct {
	App         string               `json:"app"                   yaml:"app"         validate:"required"`
	Label       string               `json:"label"                 yaml:"label"       validate:"required"`
	Description string               `json:"description,omitempty" yaml:"description,omitempty"`
	Archetype   string               `json:"archetype,omitempty"   yaml:"archetype,omitempty"`
	Parameters  map[string]Parameter `json:"parameters"            yaml:"parameters"`
}

// Module is an entry together with its identifier.
type Module struct {
	ID string `json:"id"`
	Entry
}

// Registry maps module identifiers to their entries. It is immutable after New
// and safe for concurrent readers.
type Registry struct {
	entries map[string]Entry
}

// New builds a registry from entries, validating each of them.
func New(entries map[string]Entry) (*Registry, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	for id, entry := range entries {
		if id == "" {
			return nil, errors.New("registry entry with empty module id")
		}

		err := validate.Struct(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid registry entry %s: %w", id, err)
		}
	}

	return &Registry{entries: maps.Clone(entries)}, nil
}

// Get returns the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	entry, ok := r.entries[id]

	return entry, ok
}

// Merge returns a registry holding the entries of r and other. Entries of other
// win on identifier clashes.
func (r *Registry) Merge(other *Registry) *Registry {
	entries := maps.Clone(r.entries)
	maps.Copy(entries, other.entries)

	return &Registry{entries: entries}
}

// Len returns the number of modules.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Modules returns every module sorted by identifier.
func (r *Registry) Modules() []Module {
	ids := slices.Sorted(maps.Keys(r.entries))

	modules := make([]Module, 0, len(ids))
	for _, id := range ids {
		modules = append(modules, Module{ID: id, Entry: r.entries[id]})
	}

	return modules
}

// Apps returns the sorted, de-duplicated app names.
func (r *Registry) Apps() []string {
	seen := make(map[string]struct{})
	for _, entry := range r.entries {
		seen[entry.App] = struct{}{}
	}

	return slices.Sorted(maps.Keys(seen))
}

// ModulesByApp returns the modules of a single app sorted by identifier.
func (r *Registry) ModulesByApp(app string) []Module {
	var modules []Module

	for _, module := range r.Modules() {
		if module.App == app {
			modules = append(modules, module)
		}
	}

	return modules
}

// HealthCheck reports whether the registry holds any module.
func (r *Registry) HealthCheck() (string, bool) {
	if r.Len() == 0 {
		return "registry is empty", false
	}

	return strconv.Itoa(r.Len()) + " modules loaded", true
}
