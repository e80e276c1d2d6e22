package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"firestige.xyz/canframe/internal/core"
)

// Supported document formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
	FormatTOML = "toml"
)

// FormatFromPath infers the document format from a file extension.
func FormatFromPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: unsupported registry file extension %q (use .yaml, .yml, .json or .toml)",
			core.ErrRegistryInvalid, filepath.Ext(path))
	}
}

// LoadFile reads and parses a registry document.
func LoadFile(path string) (Map, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file %s: %w", path, err)
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry file %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a registry document of the given format.
//
//	messages:
//	  - id: 0x1234
//	    name: EngineSpeed
func Parse(data []byte, format string) (Map, error) {
	var doc map[string]any
	var err error

	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&doc)
	case FormatTOML:
		err = toml.Unmarshal(data, &doc)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", core.ErrRegistryInvalid, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRegistryInvalid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", core.ErrRegistryInvalid)
	}

	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	items, _ := doc["messages"].([]any)
	if items == nil {
		// TOML arrays of tables decode as []map[string]any
		if tables, ok := doc["messages"].([]map[string]any); ok {
			for _, t := range tables {
				items = append(items, t)
			}
		}
	}

	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: message %d is not a mapping", core.ErrRegistryInvalid, i)
		}
		id, err := parseIdentifier(fields["id"])
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %v", core.ErrRegistryInvalid, i, err)
		}
		name, _ := fields["name"].(string)
		entries = append(entries, Entry{ID: id, Name: name})
	}

	return FromEntries(entries)
}

// parseIdentifier accepts the numeric shapes produced by the yaml, json and
// toml decoders plus decimal or 0x-prefixed strings.
func parseIdentifier(v any) (uint32, error) {
	switch n := v.(type) {
	case int:
		return fromInt64(int64(n))
	case int64:
		return fromInt64(n)
	case uint64:
		if n > math.MaxUint32 {
			return 0, fmt.Errorf("identifier %d exceeds 32 bits", n)
		}
		return uint32(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("identifier %v is not an integer", n)
		}
		return fromInt64(int64(n))
	case json.Number:
		return parseIdentifierString(n.String())
	case string:
		return parseIdentifierString(n)
	default:
		return 0, fmt.Errorf("identifier has unsupported type %T", v)
	}
}

func fromInt64(n int64) (uint32, error) {
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("identifier %d out of range", n)
	}
	return uint32(n), nil
}

func parseIdentifierString(s string) (uint32, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid identifier %q", s)
	}
	return uint32(id), nil
}
