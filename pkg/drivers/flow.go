package drivers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/protocol"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/template"
)

// SleepDriver waits config.duration once per execution and passes bundles through.
// The duration is a Go duration string or a number of milliseconds.
type SleepDriver struct{ base }

func NewSleepDriver(moduleID string, entry registry.Entry) protocol.Driver {
	return &SleepDriver{base{metadata: metadataFor(moduleID, entry)}}
}

func (d *SleepDriver) Execute(
	ctx context.Context,
	in []models.Bundle,
	config map[string]any,
	execCtx *models.ExecutionContext,
) ([]models.Bundle, error) {
	hydrated, err := template.Hydrate(config, scopeOf(execCtx))
	if err != nil {
		return nil, err
	}

	duration, err := parseDuration(hydrated["duration"])
	if err != nil {
		return nil, err
	}

	if duration <= 0 {
		return in, nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return in, nil
	}
}

func parseDuration(value any) (time.Duration, error) {
	switch typed := value.(type) {
	case nil:
		return 0, nil
	case string:
		duration, err := time.ParseDuration(typed)
		if err != nil {
			return 0, fmt.Errorf("%w: duration %q: %w", ErrInvalidDriverConfig, typed, err)
		}

		return duration, nil
	case float64:
		return time.Duration(typed * float64(time.Millisecond)), nil
	case int:
		return time.Duration(typed) * time.Millisecond, nil
	case int64:
		return time.Duration(typed) * time.Millisecond, nil
	default:
		return 0, fmt.Errorf("%w: duration has type %T", ErrInvalidDriverConfig, value)
	}
}

// SetVariableDriver stores config.value under config.name in the run globals.
type SetVariableDriver struct{ base }

func NewSetVariableDriver(moduleID string, entry registry.Entry) protocol.Driver {
	return &SetVariableDriver{base{metadata: metadataFor(moduleID, entry)}}
}

func (d *SetVariableDriver) Execute(
	_ context.Context,
	in []models.Bundle,
	config map[string]any,
	execCtx *models.ExecutionContext,
) ([]models.Bundle, error) {
	if execCtx == nil {
		return nil, ErrNoExecutionContext
	}

	hydrated, err := template.Hydrate(config, execCtx)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(hydrated, "name")
	if err != nil {
		return nil, err
	}

	execCtx.SetGlobal(name, hydrated["value"])

	return in, nil
}

// GetVariableDriver copies the global config.name into each bundle under config.as.
type GetVariableDriver struct{ base }

func NewGetVariableDriver(moduleID string, entry registry.Entry) protocol.Driver {
	return &GetVariableDriver{base{metadata: metadataFor(moduleID, entry)}}
}

func (d *GetVariableDriver) Execute(
	_ context.Context,
	in []models.Bundle,
	config map[string]any,
	execCtx *models.ExecutionContext,
) ([]models.Bundle, error) {
	if execCtx == nil {
		return nil, ErrNoExecutionContext
	}

	hydrated, err := template.Hydrate(config, execCtx)
	if err != nil {
		return nil, err
	}

	name, err := requiredString(hydrated, "name")
	if err != nil {
		return nil, err
	}

	as, _ := hydrated["as"].(string)
	if as == "" {
		as = "value"
	}

	value, _ := execCtx.Global(name)

	out := make([]models.Bundle, 0, len(in))
	for _, bundle := range in {
		copied := models.CloneBundle(bundle)
		copied[as] = value
		out = append(out, copied)
	}

	return out, nil
}

// IteratorDriver emits one bundle per element of config.array. The array is either
// a hydrated value or a field path resolved inside each input bundle. Object
// elements become bundles; other elements are wrapped as {"value": element}.
type IteratorDriver struct{ base }

func NewIteratorDriver(moduleID string, entry registry.Entry) protocol.Driver {
	return &IteratorDriver{base{metadata: metadataFor(moduleID, entry)}}
}

func (d *IteratorDriver) Execute(
	ctx context.Context,
	in []models.Bundle,
	config map[string]any,
	execCtx *models.ExecutionContext,
) ([]models.Bundle, error) {
	hydrated, err := template.Hydrate(config, scopeOf(execCtx))
	if err != nil {
		return nil, err
	}

	var out []models.Bundle

	for _, bundle := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		elements, err := iterable(hydrated["array"], bundle)
		if err != nil {
			return nil, err
		}

		for _, element := range elements {
			if object, ok := element.(map[string]any); ok {
				out = append(out, models.CloneBundle(object))

				continue
			}

			out = append(out, models.Bundle{"value": element})
		}
	}

	if out == nil {
		out = []models.Bundle{}
	}

	return out, nil
}

func iterable(value any, bundle models.Bundle) ([]any, error) {
	switch typed := value.(type) {
	case []any:
		return typed, nil
	case []models.Bundle:
		elements := make([]any, len(typed))
		for i, element := range typed {
			elements[i] = element
		}

		return elements, nil
	case string:
		resolved, ok := template.Lookup(bundle, strings.TrimSpace(typed))
		if !ok {
			return nil, fmt.Errorf("%w: field %q not found in bundle", ErrInvalidDriverConfig, typed)
		}

		elements, ok := resolved.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is %T, not an array", ErrInvalidDriverConfig, typed, resolved)
		}

		return elements, nil
	case nil:
		return nil, fmt.Errorf("%w: array is required", ErrInvalidDriverConfig)
	default:
		return nil, fmt.Errorf("%w: array has type %T", ErrInvalidDriverConfig, value)
	}
}

// AggregatorDriver collapses all input bundles into {items, count}.
type AggregatorDriver struct{ base }

func NewAggregatorDriver(moduleID string, entry registry.Entry) protocol.Driver {
	return &AggregatorDriver{base{metadata: metadataFor(moduleID, entry)}}
}

func (d *AggregatorDriver) Execute(
	_ context.Context,
	in []models.Bundle,
	_ map[string]any,
	_ *models.ExecutionContext,
) ([]models.Bundle, error) {
	items := make([]any, len(in))
	for i, bundle := range in {
		items[i] = models.CloneBundle(bundle)
	}

	return []models.Bundle{{"items": items, "count": len(in)}}, nil
}

// RouterDriver passes bundles through unchanged.
type RouterDriver struct{ base }

func NewRouterDriver(moduleID string, entry registry.Entry) protocol.Driver {
	return &RouterDriver{base{metadata: metadataFor(moduleID, entry)}}
}

func (d *RouterDriver) Execute(
	ctx context.Context,
	in []models.Bundle,
	_ map[string]any,
	_ *models.ExecutionContext,
) ([]models.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return in, nil
}

func requiredString(config map[string]any, key string) (string, error) {
	value, ok := config[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %s is required", ErrInvalidDriverConfig, key)
	}

	return value, nil
}
