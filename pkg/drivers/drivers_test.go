package drivers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dukex/bundleflow/pkg/models"
	"github.com/dukex/bundleflow/pkg/protocol"
	"github.com/dukex/bundleflow/pkg/registry"
	"github.com/dukex/bundleflow/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()

	reg, err := registry.New(map[string]registry.Entry{
		"slack:send":         {App: "slack", Label: "Send a Message"},
		"util:noop":          {App: "util", Label: "No-op"},
		"builtin:sleep":      {App: "builtin", Label: "Sleep"},
		"builtin:iterator":   {App: "builtin", Label: "Iterator"},
		"builtin:aggregator": {App: "builtin", Label: "Aggregator"},
		"builtin:router":     {App: "builtin", Label: "Router"},
		"util:set-variable":  {App: "util", Label: "Set variable"},
		"util:get-variable":  {App: "util", Label: "Get variable"},
	})
	require.NoError(t, err)

	return reg
}

func TestFactory_CreateDriver(t *testing.T) {
	factory := NewFactory(testRegistry(t))

	testCases := []struct {
		module   string
		expected any
	}{
		{module: "slack:send", expected: &GenericDriver{}},
		{module: "util:noop", expected: &GenericDriver{}},
		{module: "builtin:sleep", expected: &SleepDriver{}},
		{module: "builtin:iterator", expected: &IteratorDriver{}},
		{module: "builtin:aggregator", expected: &AggregatorDriver{}},
		{module: "builtin:router", expected: &RouterDriver{}},
		{module: "util:set-variable", expected: &SetVariableDriver{}},
		{module: "util:get-variable", expected: &GetVariableDriver{}},
	}

	for _, tc := range testCases {
		t.Run(tc.module, func(t *testing.T) {
			driver, err := factory.CreateDriver(tc.module)
			require.NoError(t, err)
			assert.IsType(t, tc.expected, driver)
			assert.Equal(t, tc.module, driver.Metadata().Name)
		})
	}
}

func TestFactory_MissingModule(t *testing.T) {
	factory := NewFactory(testRegistry(t))

	driver, err := factory.CreateDriver("discord:post")
	assert.Nil(t, driver)
	require.Error(t, err)
	assert.True(t, IsMissingDriver(err))
	assert.ErrorIs(t, err, ErrModuleNotFound)

	var missing *MissingDriverError

	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "discord:post", missing.Module)

	_, err = NewFactory(nil).CreateDriver("slack:send")
	assert.True(t, IsMissingDriver(err))
}

type stubDriver struct{ base }

func (stubDriver) Execute(context.Context, []models.Bundle, map[string]any, *models.ExecutionContext) ([]models.Bundle, error) {
	return []models.Bundle{{"stub": true}}, nil
}

func TestFactory_WithDriverOverridesTable(t *testing.T) {
	stub := func(moduleID string, entry registry.Entry) protocol.Driver {
		return stubDriver{base{metadata: metadataFor(moduleID, entry)}}
	}

	factory := NewFactory(testRegistry(t), WithDriver("slack:send", stub))

	driver, err := factory.CreateDriver("slack:send")
	require.NoError(t, err)
	assert.IsType(t, stubDriver{}, driver)

	other := NewFactory(testRegistry(t))
	driver, err = other.CreateDriver("slack:send")
	require.NoError(t, err)
	assert.IsType(t, &GenericDriver{}, driver, "options must not leak between factories")
}

func TestFactory_ConcurrentCreate(t *testing.T) {
	factory := NewFactory(testRegistry(t))

	var wg sync.WaitGroup

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := factory.CreateDriver("slack:send")
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
}

func TestGenericDriver_Passthrough(t *testing.T) {
	driver := NewGenericDriver("util:noop", registry.Entry{App: "util", Label: "No-op"})
	in := []models.Bundle{{"a": 1}, {"b": 2}}

	out, err := driver.Execute(context.Background(), in, map[string]any{"ignored": "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestGenericDriver_Synthesizes(t *testing.T) {
	driver := NewGenericDriver("slack:send", registry.Entry{App: "slack", Label: "Send"}).(*GenericDriver)

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	driver.now = func() time.Time { return fixed }

	execCtx, record := models.NewExecutionContext("exec", "scen", nil)
	require.NoError(t, record("1", []models.Bundle{{"name": "Ada"}}))

	out, err := driver.Execute(
		context.Background(),
		[]models.Bundle{{}, {}},
		map[string]any{"channel": "#general", "text": "Hi {{1.name}}"},
		execCtx,
	)
	require.NoError(t, err)
	require.Len(t, out, 2)

	for _, bundle := range out {
		assert.True(t, strings.HasPrefix(bundle["id"].(string), "gen_"))
		assert.Equal(t, "#general", bundle["channel"])
		assert.Equal(t, "Hi Ada", bundle["text"])
		assert.Equal(t, "2024-05-01T11:00:00Z", bundle["timestamp"])
	}

	assert.NotEqual(t, out[0]["id"], out[1]["id"])
}

func TestGenericDriver_ConfigMayOverrideIDButNotTimestamp(t *testing.T) {
	driver := NewGenericDriver("slack:send", registry.Entry{App: "slack", Label: "Send"})

	out, err := driver.Execute(
		context.Background(),
		models.TriggerBundles(),
		map[string]any{"id": "custom", "timestamp": "old"},
		nil,
	)
	require.NoError(t, err)
	assert.Equal(t, "custom", out[0]["id"])
	assert.NotEqual(t, "old", out[0]["timestamp"])
}

func TestGenericDriver_EmptyInput(t *testing.T) {
	driver := NewGenericDriver("slack:send", registry.Entry{App: "slack", Label: "Send"})

	out, err := driver.Execute(context.Background(), nil, map[string]any{"x": 1}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGenericDriver_UnresolvedReference(t *testing.T) {
	driver := NewGenericDriver("slack:send", registry.Entry{App: "slack", Label: "Send"})
	execCtx, _ := models.NewExecutionContext("exec", "scen", nil)

	_, err := driver.Execute(
		context.Background(),
		models.TriggerBundles(),
		map[string]any{"text": "{{9.name}}"},
		execCtx,
	)
	assert.True(t, template.IsUnresolvedReference(err))
}

func TestGenericDriver_CancelledContext(t *testing.T) {
	driver := NewGenericDriver("slack:send", registry.Entry{App: "slack", Label: "Send"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := driver.Execute(ctx, models.TriggerBundles(), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSleepDriver(t *testing.T) {
	driver := NewSleepDriver("builtin:sleep", registry.Entry{App: "builtin", Label: "Sleep"})
	in := []models.Bundle{{"a": 1}}

	out, err := driver.Execute(context.Background(), in, map[string]any{"duration": "5ms"}, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	out, err = driver.Execute(context.Background(), in, map[string]any{"duration": float64(1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = driver.Execute(context.Background(), in, map[string]any{"duration": "soon"}, nil)
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = driver.Execute(ctx, in, map[string]any{"duration": "1h"}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestVariableDrivers(t *testing.T) {
	set := NewSetVariableDriver("util:set-variable", registry.Entry{App: "util", Label: "Set"})
	get := NewGetVariableDriver("util:get-variable", registry.Entry{App: "util", Label: "Get"})

	execCtx, record := models.NewExecutionContext("exec", "scen", nil)
	require.NoError(t, record("1", []models.Bundle{{"total": 42}}))

	in := []models.Bundle{{"row": 1}}

	out, err := set.Execute(context.Background(), in, map[string]any{"name": "total", "value": "{{1.total}}"}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	value, ok := execCtx.Global("total")
	require.True(t, ok)
	assert.Equal(t, 42, value)

	out, err = get.Execute(context.Background(), in, map[string]any{"name": "total", "as": "sum"}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, []models.Bundle{{"row": 1, "sum": 42}}, out)
	assert.NotContains(t, in[0], "sum", "input bundles must not be modified")

	out, err = get.Execute(context.Background(), in, map[string]any{"name": "total"}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, 42, out[0]["value"])

	_, err = set.Execute(context.Background(), in, map[string]any{"value": 1}, execCtx)
	assert.ErrorIs(t, err, ErrInvalidDriverConfig)

	_, err = set.Execute(context.Background(), in, map[string]any{"name": "x"}, nil)
	assert.ErrorIs(t, err, ErrNoExecutionContext)
}

func TestIteratorDriver(t *testing.T) {
	driver := NewIteratorDriver("builtin:iterator", registry.Entry{App: "builtin", Label: "Iterator"})

	testCases := []struct {
		name     string
		in       []models.Bundle
		config   map[string]any
		expected []models.Bundle
		wantErr  bool
	}{
		{
			name:     "field path inside each bundle",
			in:       []models.Bundle{{"rows": []any{map[string]any{"id": 1}, map[string]any{"id": 2}}}, {"rows": []any{"x"}}},
			config:   map[string]any{"array": "rows"},
			expected: []models.Bundle{{"id": 1}, {"id": 2}, {"value": "x"}},
		},
		{
			name:     "literal array",
			in:       models.TriggerBundles(),
			config:   map[string]any{"array": []any{1, 2, 3}},
			expected: []models.Bundle{{"value": 1}, {"value": 2}, {"value": 3}},
		},
		{
			name:     "empty array",
			in:       models.TriggerBundles(),
			config:   map[string]any{"array": []any{}},
			expected: []models.Bundle{},
		},
		{
			name:    "missing array",
			in:      models.TriggerBundles(),
			config:  map[string]any{},
			wantErr: true,
		},
		{
			name:    "field is not an array",
			in:      []models.Bundle{{"rows": "nope"}},
			config:  map[string]any{"array": "rows"},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := driver.Execute(context.Background(), tc.in, tc.config, nil)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDriverConfig)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, out)
		})
	}
}

func TestIteratorDriver_ReferencedArray(t *testing.T) {
	driver := NewIteratorDriver("builtin:iterator", registry.Entry{App: "builtin", Label: "Iterator"})

	execCtx, record := models.NewExecutionContext("exec", "scen", nil)
	require.NoError(t, record("1", []models.Bundle{{"files": []any{map[string]any{"name": "a.png"}}}}))

	out, err := driver.Execute(context.Background(), models.TriggerBundles(), map[string]any{"array": "{{1.files}}"}, execCtx)
	require.NoError(t, err)
	assert.Equal(t, []models.Bundle{{"name": "a.png"}}, out)
}

func TestAggregatorDriver(t *testing.T) {
	driver := NewAggregatorDriver("builtin:aggregator", registry.Entry{App: "builtin", Label: "Aggregator"})

	out, err := driver.Execute(context.Background(), []models.Bundle{{"a": 1}, {"a": 2}}, nil, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 2, out[0]["count"])
	assert.Equal(t, []any{models.Bundle{"a": 1}, models.Bundle{"a": 2}}, out[0]["items"])

	out, err = driver.Execute(context.Background(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out[0]["count"])
}

func TestRouterDriver(t *testing.T) {
	driver := NewRouterDriver("builtin:router", registry.Entry{App: "builtin", Label: "Router"})
	in := []models.Bundle{{"a": 1}}

	out, err := driver.Execute(context.Background(), in, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, "builtin", driver.Metadata().App)
}

func TestBuiltinEntries_AllHaveDrivers(t *testing.T) {
	entries := BuiltinEntries()

	reg, err := registry.New(entries)
	require.NoError(t, err)

	factory := NewFactory(reg)
	constructors := DefaultConstructors()

	for id := range entries {
		driver, err := factory.CreateDriver(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, driver.Metadata().Name)

		if id != "util:noop" {
			assert.Contains(t, constructors, id)
		}
	}

	for id := range constructors {
		assert.Contains(t, entries, id)
	}
}
