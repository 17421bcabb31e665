package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidConfig indicates a node config does not match its module's parameter schema.
var ErrInvalidConfig = errors.New("invalid module config")

// referencePattern accepts a value that is a single {{node.path}} reference, which
// is only resolved at run time and cannot be type-checked up front.
const referencePattern = `^\s*\{\{\s*[A-Za-z0-9_:\-]+(\.[^{}\s]+)+\s*\}\}\s*$`

// ConfigError lists the schema violations of a node config.
type ConfigError struct {
	Module   string
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config for module %s is invalid: %s", e.Module, strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// Schema renders the module parameters as a JSON Schema object.
func (e Entry) Schema() map[string]any {
	properties := make(map[string]any, len(e.Parameters))
	required := make([]string, 0)

	for name, param := range e.Parameters {
		properties[name] = parameterSchema(param)

		if param.Required {
			required = append(required, name)
		}
	}

	sort.Strings(required)

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func parameterSchema(param Parameter) map[string]any {
	var typed map[string]any

	switch param.Type {
	case "string":
		return map[string]any{"type": "string", "description": param.Label}
	case "number":
		typed = map[string]any{"type": "number"}
	case "boolean", "bool":
		typed = map[string]any{"type": "boolean"}
	case "array":
		typed = map[string]any{"type": "array"}
	case "select":
		if len(param.Options) == 0 {
			return map[string]any{"type": "string", "description": param.Label}
		}

		options := make([]any, len(param.Options))
		for i, option := range param.Options {
			options[i] = option
		}

		typed = map[string]any{"enum": options}
	default:
		// json and unknown types accept any value
		return map[string]any{"description": param.Label}
	}

	return map[string]any{
		"description": param.Label,
		"anyOf": []any{
			typed,
			map[string]any{"type": "string", "pattern": referencePattern},
		},
	}
}

// ValidateConfig checks a node config against the parameter schema of module id.
// The engine never calls this; it serves authoring tools.
func (r *Registry) ValidateConfig(id string, config map[string]any) error {
	entry, ok := r.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, id)
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(entry.Schema()),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for module %s: %w", id, err)
	}

	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		problems = append(problems, resultErr.String())
	}

	sort.Strings(problems)

	return &ConfigError{Module: id, Problems: problems}
}
