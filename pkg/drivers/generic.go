package drivers

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/protocol"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/template"
	"github.com/google/uuid"
)

// GenericDriver is the reference driver for any registered module. Flow-control
// apps pass bundles through; every other app emits one synthesized record per
// input bundle built from the hydrated config.
type GenericDriver struct {
	base

	newID func() string
	now   func() time.Time
}

// NewGenericDriver creates the generic driver for a module.
func NewGenericDriver(moduleID string, entry registry.Entry) protocol.Driver {
	return &GenericDriver{
		base:  base{metadata: metadataFor(moduleID, entry)},
		newID: func() string { return "gen_" + uuid.NewString() },
		now:   time.Now,
	}
}

func (d *GenericDriver) Execute(
	ctx context.Context,
	in []models.Bundle,
	config map[string]any,
	execCtx *models.ExecutionContext,
) ([]models.Bundle, error) {
	out := make([]models.Bundle, 0, len(in))
	passthrough := IsFlowControl(d.metadata.App)

	for i, bundle := range in {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		hydrated, err := template.Hydrate(config, scopeOf(execCtx))
		if err != nil {
			return nil, fmt.Errorf("bundle %d: %w", i, err)
		}

		if passthrough {
			out = append(out, bundle)

			continue
		}

		record := models.Bundle{"id": d.newID()}
		maps.Copy(record, hydrated)
		record["timestamp"] = d.now().UTC().Format(time.RFC3339Nano)

		out = append(out, record)
	}

	return out, nil
}
