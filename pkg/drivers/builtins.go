package drivers

import "github.com/dukex/bundleflow/pkg/registry"

// BuiltinEntries describes the flow-control modules served by specialized drivers.
// Registry documents only need to list third-party modules; these are merged in.
func BuiltinEntries() map[string]registry.Entry {
	iterator := registry.Entry{
		App:         AppBuiltin,
		Label:       "Iterator",
		Description: "Splits an array into one bundle per element",
		Archetype:   "iterator",
		Parameters: map[string]registry.Parameter{
			"array": {Type: "json", Label: "Array", Required: true},
		},
	}

	aggregator := registry.Entry{
		App:         AppBuiltin,
		Label:       "Array aggregator",
		Description: "Collects every input bundle into a single bundle",
		Archetype:   "aggregator",
		Parameters:  map[string]registry.Parameter{},
	}

	router := registry.Entry{
		App:         AppBuiltin,
		Label:       "Router",
		Description: "Sends every bundle to each connected route",
		Archetype:   "router",
		Parameters:  map[string]registry.Parameter{},
	}

	return map[string]registry.Entry{
		"builtin:sleep": {
			App:         AppBuiltin,
			Label:       "Sleep",
			Description: "Delays the run",
			Archetype:   "action",
			Parameters: map[string]registry.Parameter{
				"duration": {Type: "json", Label: "Duration (Go duration or milliseconds)", Required: true},
			},
		},
		"util:set-variable": {
			App:       AppUtil,
			Label:     "Set variable",
			Archetype: "action",
			Parameters: map[string]registry.Parameter{
				"name":  {Type: "string", Label: "Variable name", Required: true},
				"value": {Type: "json", Label: "Variable value"},
			},
		},
		"util:get-variable": {
			App:       AppUtil,
			Label:     "Get variable",
			Archetype: "action",
			Parameters: map[string]registry.Parameter{
				"name": {Type: "string", Label: "Variable name", Required: true},
				"as":   {Type: "string", Label: "Output field", Default: "value"},
			},
		},
		"util:noop": {
			App:       AppUtil,
			Label:     "No operation",
			Archetype: "action",
		},
		"builtin:iterator":        iterator,
		"builtin:BasicIterator":   iterator,
		"builtin:BasicFeeder":     iterator,
		"builtin:aggregator":      aggregator,
		"builtin:BasicAggregator": aggregator,
		"builtin:router":          router,
		"builtin:BasicRouter":     router,
	}
}
