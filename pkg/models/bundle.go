// Package models defines the core data model for bundle-based workflow execution.
package models

import (
	"maps"
	"reflect"
)

// Bundle is one data record flowing between workflow nodes.
type Bundle = map[string]any

// TriggerBundles returns the input of a node without predecessors: a single empty bundle.
func TriggerBundles() []Bundle {
	return []Bundle{{}}
}

// CloneBundle returns a shallow copy of b.
func CloneBundle(b Bundle) Bundle {
	if b == nil {
		return Bundle{}
	}

	return maps.Clone(b)
}

// CloneBundles deep-copies every bundle of bundles. A nil slice stays nil.
func CloneBundles(bundles []Bundle) []Bundle {
	if bundles == nil {
		return nil
	}

	out := make([]Bundle, len(bundles))
	for i, bundle := range bundles {
		out[i] = CloneValue(bundle).(map[string]any)
	}

	return out
}

// DriverMetadata describes the module a driver realizes.
type DriverMetadata struct {
	Name  string `json:"name"`
	App   string `json:"app"`
	Label string `json:"label"`
}

// CloneValue deep-copies nested maps and slices of a decoded JSON value.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, nested := range typed {
			out[key] = CloneValue(nested)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for i, nested := range typed {
			out[i] = CloneValue(nested)
		}

		return out
	case []Bundle:
		out := make([]Bundle, len(typed))
		for i, nested := range typed {
			out[i], _ = CloneValue(nested).(map[string]any)
		}

		return out
	default:
		return cloneReflect(value)
	}
}

// cloneReflect copies Go-built slices and maps, such as []string, keeping their type.
func cloneReflect(value any) any {
	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return value
		}

		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := range rv.Len() {
			setCloned(out.Index(i), rv.Index(i))
		}

		return out.Interface()
	case reflect.Map:
		if rv.IsNil() {
			return value
		}

		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())

		iter := rv.MapRange()
		for iter.Next() {
			cloned := reflect.New(rv.Type().Elem()).Elem()
			setCloned(cloned, iter.Value())
			out.SetMapIndex(iter.Key(), cloned)
		}

		return out.Interface()
	default:
		return value
	}
}

func setCloned(dst, src reflect.Value) {
	cloned := CloneValue(src.Interface())
	if cloned == nil {
		return
	}

	dst.Set(reflect.ValueOf(cloned))
}
