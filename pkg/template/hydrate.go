// Package template resolves {{nodeId.path}} references inside node configuration
// against the outputs recorded earlier in a run.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dukex/bundleflow/pkg/models"
)

// ErrUnresolvedReference indicates a reference whose node output or path does not exist.
var ErrUnresolvedReference = errors.New("unresolved reference")

var (
	tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_:\-]+)((?:\.[^.{}\s]+)+)\s*\}\}`)
	wholePattern = regexp.MustCompile(`^\s*` + tokenPattern.String() + `\s*$`)
)

// Reference is a single {{nodeId.path}} occurrence.
type Reference struct {
	Token  string   `json:"token"`
	NodeID string   `json:"node_id"`
	Path   []string `json:"path"`
}

func (r Reference) String() string {
	return r.NodeID + "." + strings.Join(r.Path, ".")
}

// UnresolvedReferenceError reports why a reference could not be resolved.
type UnresolvedReferenceError struct {
	Token  string
	NodeID string
	Path   string
	Reason string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("unresolved reference %s: %s", e.Token, e.Reason)
}

func (e *UnresolvedReferenceError) Unwrap() error {
	return ErrUnresolvedReference
}

// IsUnresolvedReference reports whether err is caused by an unresolved reference.
func IsUnresolvedReference(err error) bool {
	return errors.Is(err, ErrUnresolvedReference)
}

// Hydrate returns a deep copy of config with every reference replaced. A string that
// is exactly one reference takes the referenced value as is; references embedded in
// longer strings are replaced by their string form. Typed slices and string-keyed
// maps are walked too and come back as []any and map[string]any.
func Hydrate(config map[string]any, scope models.ScopeReader) (map[string]any, error) {
	if config == nil {
		return map[string]any{}, nil
	}

	hydrated, err := hydrateValue(config, scope)
	if err != nil {
		return nil, err
	}

	return hydrated.(map[string]any), nil
}

// References lists every reference found in config, ordered by node id then path.
func References(config map[string]any) []Reference {
	var refs []Reference

	collectReferences(config, &refs)

	sort.SliceStable(refs, func(i, j int) bool {
		if refs[i].NodeID != refs[j].NodeID {
			return refs[i].NodeID < refs[j].NodeID
		}

		return refs[i].String() < refs[j].String()
	})

	return refs
}

func collectReferences(value any, refs *[]Reference) {
	switch typed := value.(type) {
	case string:
		for _, match := range tokenPattern.FindAllStringSubmatch(typed, -1) {
			*refs = append(*refs, newReference(match))
		}
	case map[string]any:
		for _, nested := range typed {
			collectReferences(nested, refs)
		}
	case []any:
		for _, nested := range typed {
			collectReferences(nested, refs)
		}
	default:
		if items, ok := asSlice(value); ok {
			collectReferences(items, refs)
		} else if entries, ok := asMap(value); ok {
			collectReferences(entries, refs)
		}
	}
}

func newReference(match []string) Reference {
	return Reference{
		Token:  match[0],
		NodeID: match[1],
		Path:   strings.Split(strings.TrimPrefix(match[2], "."), "."),
	}
}

func hydrateValue(value any, scope models.ScopeReader) (any, error) {
	switch typed := value.(type) {
	case string:
		return hydrateString(typed, scope)
	case map[string]any:
		out := make(map[string]any, len(typed))

		for key, nested := range typed {
			resolved, err := hydrateValue(nested, scope)
			if err != nil {
				return nil, err
			}

			out[key] = resolved
		}

		return out, nil
	case []any:
		out := make([]any, len(typed))

		for i, nested := range typed {
			resolved, err := hydrateValue(nested, scope)
			if err != nil {
				return nil, err
			}

			out[i] = resolved
		}

		return out, nil
	default:
		if items, ok := asSlice(value); ok {
			return hydrateValue(items, scope)
		}

		if entries, ok := asMap(value); ok {
			return hydrateValue(entries, scope)
		}

		return value, nil
	}
}

// asSlice exposes a Go-built slice or array, such as []string, in decoded JSON
// shape. Byte slices are treated as scalars.
func asSlice(value any) ([]any, bool) {
	rv := reflect.ValueOf(value)

	switch rv.Kind() {
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}

		if rv.IsNil() {
			return []any{}, true
		}
	case reflect.Array:
	default:
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range rv.Len() {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

// asMap exposes a Go-built map with string keys, such as map[string]string, in
// decoded JSON shape.
func asMap(value any) (map[string]any, bool) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	entries := make(map[string]any, rv.Len())

	iter := rv.MapRange()
	for iter.Next() {
		entries[iter.Key().String()] = iter.Value().Interface()
	}

	return entries, true
}

func hydrateString(input string, scope models.ScopeReader) (any, error) {
	if match := wholePattern.FindStringSubmatch(input); match != nil {
		return resolve(newReference(match), scope)
	}

	if !strings.Contains(input, "{{") {
		return input, nil
	}

	var resolveErr error

	output := tokenPattern.ReplaceAllStringFunc(input, func(token string) string {
		if resolveErr != nil {
			return token
		}

		value, err := resolve(newReference(tokenPattern.FindStringSubmatch(token)), scope)
		if err != nil {
			resolveErr = err

			return token
		}

		return stringify(value)
	})
	if resolveErr != nil {
		return nil, resolveErr
	}

	return output, nil
}

func resolve(ref Reference, scope models.ScopeReader) (any, error) {
	unresolved := func(reason string) error {
		return &UnresolvedReferenceError{
			Token:  ref.Token,
			NodeID: ref.NodeID,
			Path:   strings.Join(ref.Path, "."),
			Reason: reason,
		}
	}

	if scope == nil {
		return nil, unresolved("no scope available")
	}

	bundles, ok := scope.Output(ref.NodeID)
	if !ok {
		return nil, unresolved("node " + ref.NodeID + " has no recorded output")
	}

	if len(bundles) == 0 {
		return nil, unresolved("node " + ref.NodeID + " produced no bundles")
	}

	var current any = bundles[0]

	for i, segment := range ref.Path {
		next, found := step(current, segment)
		if !found {
			return nil, unresolved("path " + strings.Join(ref.Path[:i+1], ".") + " not found")
		}

		current = next
	}

	return models.CloneValue(current), nil
}

// Lookup walks a dot-separated path inside value. Numeric segments index into slices.
func Lookup(value any, path string) (any, bool) {
	current := value

	for _, segment := range strings.Split(path, ".") {
		next, found := step(current, segment)
		if !found {
			return nil, false
		}

		current = next
	}

	return current, true
}

func step(current any, segment string) (any, bool) {
	if object, ok := current.(map[string]any); ok {
		value, found := object[segment]

		return value, found
	}

	index, err := strconv.Atoi(segment)
	if err != nil || index < 0 {
		return nil, false
	}

	rv := reflect.ValueOf(current)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	if index >= rv.Len() {
		return nil, false
	}

	return rv.Index(index).Interface(), true
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case map[string]any, []any, []map[string]any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}

		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}
