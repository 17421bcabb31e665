package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a registry document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads a registry document keyed by module identifier.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	return Parse(data, FormatFromPath(path))
}

// Parse decodes a registry document.
func Parse(data []byte, format Format) (*Registry, error) {
	entries := make(map[string]Entry)

	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &entries)
	case FormatJSON:
		err = json.Unmarshal(data, &entries)
	default:
		return nil, fmt.Errorf("unsupported registry format: %s", format)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode %s registry: %w", format, err)
	}

	return New(entries)
}
