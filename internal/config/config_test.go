package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
decoder:
  preset: standard
  max_payload: 12
registry:
  file: "/etc/canframe/registry.yaml"
  watch: true
output:
  format: kafka
  kafka:
    brokers:
      - "localhost:9092"
    topic: "can.frames"
    batch_timeout: "250ms"
pipeline:
  on_error: stop
log:
  level: debug
  appenders:
    - type: file
      options:
        filename: "/tmp/canframe.log"
metrics:
  enabled: true
  listen: "127.0.0.1:9102"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "standard", cfg.Decoder.Preset)
	assert.Equal(t, "/etc/canframe/registry.yaml", cfg.Registry.File)
	assert.True(t, cfg.Registry.Watch)
	assert.Equal(t, FormatKafka, cfg.Output.Format)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Output.Kafka.Brokers)
	assert.Equal(t, "can.frames", cfg.Output.Kafka.Topic)
	assert.Equal(t, 250*time.Millisecond, cfg.Output.Kafka.BatchTimeout)
	assert.Equal(t, 100, cfg.Output.Kafka.BatchSize)
	assert.Equal(t, OnErrorStop, cfg.Pipeline.OnError)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Log.Appenders, 1)
	assert.Equal(t, "file", cfg.Log.Appenders[0].Type)
	assert.Equal(t, "/tmp/canframe.log", cfg.Log.Appenders[0].Options["filename"])
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)

	layout, err := cfg.Decoder.Layout()
	require.NoError(t, err)
	assert.Equal(t, decoder.Layout{IDBytes: 2, IDMask: 0x7FF, MaxPayload: 12}, layout)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, FormatText, cfg.Output.Format)
	assert.Equal(t, OnErrorSkip, cfg.Pipeline.OnError)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "canframe:registry", cfg.Registry.Redis.Key)
	assert.False(t, cfg.Metrics.Enabled)

	layout, err := cfg.Decoder.Layout()
	require.NoError(t, err)
	assert.Equal(t, decoder.DefaultLayout, layout)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CANFRAME_LOG_LEVEL", "warn")
	t.Setenv("CANFRAME_DECODER_ID_MASK", "0x7FF")
	t.Setenv("CANFRAME_DECODER_BYTE_ORDER", "little")

	cfg, err := Load(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	layout, err := cfg.Decoder.Layout()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x7FF), layout.IDMask)
	assert.Equal(t, decoder.LittleEndian, layout.Order)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "log:\n  level: loud\n"},
		{"output format", "output:\n  format: xml\n"},
		{"kafka without brokers", "output:\n  format: kafka\n  kafka:\n    topic: t\n"},
		{"kafka without topic", "output:\n  format: kafka\n  kafka:\n    brokers: [\"b:9092\"]\n"},
		{"on_error", "pipeline:\n  on_error: retry\n"},
		{"preset", "decoder:\n  preset: j1939\n"},
		{"id bytes", "decoder:\n  id_bytes: 9\n"},
		{"byte order", "decoder:\n  byte_order: middle\n"},
		{"metrics listen", "metrics:\n  enabled: true\n  listen: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfigInvalid), "expected ErrConfigInvalid, got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestDecoderConfigLayoutOverrides(t *testing.T) {
	layout, err := DecoderConfig{Preset: "extended", IDBytes: 3, MaxPayload: 16}.Layout()
	require.NoError(t, err)
	assert.Equal(t, 3, layout.IDBytes)
	assert.Equal(t, uint32(0x1FFFFFFF), layout.IDMask)
	assert.Equal(t, 16, layout.MaxPayload)
}

func TestLoadKafkaInput(t *testing.T) {
	path := writeConfig(t, `
input:
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    topic: "can.raw"
    auto_offset_reset: earliest
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Input.Kafka.Brokers)
	assert.Equal(t, "can.raw", cfg.Input.Kafka.Topic)
	assert.Equal(t, "canframe", cfg.Input.Kafka.GroupID)
	assert.Equal(t, "earliest", cfg.Input.Kafka.AutoOffsetReset)

	bad := writeConfig(t, "input:\n  kafka:\n    auto_offset_reset: middle\n")
	_, err = Load(bad)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}
