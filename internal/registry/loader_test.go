package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/canframe/internal/core"
)

const yamlDoc = `
messages:
  - id: 0x1234
    name: EngineSpeed
    description: rpm
  - id: "0x0567"
    name: VehicleStatus
  - id: 100
    name: Decimal
`

const jsonDoc = `{
  "messages": [
    {"id": 4660, "name": "EngineSpeed"},
    {"id": "0x0567", "name": "VehicleStatus"},
    {"id": 100, "name": "Decimal"}
  ]
}`

const tomlDoc = `
[[messages]]
id = 0x1234
name = "EngineSpeed"

[[messages]]
id = "0x0567"
name = "VehicleStatus"

[[messages]]
id = 100
name = "Decimal"
`

func TestParseFormats(t *testing.T) {
	want := Map{0x1234: "EngineSpeed", 0x0567: "VehicleStatus", 100: "Decimal"}
	for format, doc := range map[string]string{
		FormatYAML: yamlDoc,
		FormatJSON: jsonDoc,
		FormatTOML: tomlDoc,
	} {
		t.Run(format, func(t *testing.T) {
			m, err := Parse([]byte(doc), format)
			require.NoError(t, err)
			assert.Equal(t, want, m)
		})
	}
}

func TestParseExtendedIdentifier(t *testing.T) {
	m, err := Parse([]byte("messages:\n  - id: 0x18DAF110\n    name: UDS\n"), FormatYAML)
	require.NoError(t, err)
	name, ok := m.Lookup(0x18DAF110)
	assert.True(t, ok)
	assert.Equal(t, "UDS", name)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty document", ""},
		{"missing messages", "other: 1\n"},
		{"missing name", "messages:\n  - id: 1\n"},
		{"empty name", "messages:\n  - id: 1\n    name: \"\"\n"},
		{"negative id", "messages:\n  - id: -1\n    name: A\n"},
		{"id too large", "messages:\n  - id: 4294967296\n    name: A\n"},
		{"bad id string", "messages:\n  - id: \"0xZZ\"\n    name: A\n"},
		{"unknown field", "messages:\n  - id: 1\n    name: A\n    dlc: 8\n"},
		{"duplicate id", "messages:\n  - id: 0x10\n    name: A\n  - id: 16\n    name: B\n"},
		{"not yaml", "messages: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), FormatYAML)
			assert.ErrorIs(t, err, core.ErrRegistryInvalid)
		})
	}
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("{}"), "ini")
	assert.ErrorIs(t, err, core.ErrRegistryInvalid)
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]string{
		"a.yaml": FormatYAML,
		"a.YML":  FormatYAML,
		"a.json": FormatJSON,
		"a.toml": FormatTOML,
	} {
		got, err := FormatFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatFromPath("a.csv")
	assert.ErrorIs(t, err, core.ErrRegistryInvalid)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(jsonDoc), 0o644))

	m, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, m, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
