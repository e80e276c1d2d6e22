// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
	"firestige.xyz/canframe/internal/log"
)

// Config is the root of the configuration file.
type Config struct {
	Decoder  DecoderConfig  `mapstructure:"decoder"`
	Input    InputConfig    `mapstructure:"input"`
	Registry RegistryConfig `mapstructure:"registry"`
	Output   OutputConfig   `mapstructure:"output"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      log.Config     `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ─── Decoder ───

// DecoderConfig selects the frame layout. Explicit fields override the preset.
type DecoderConfig struct {
	Preset     string `mapstructure:"preset"`      // default | standard | extended | fd
	IDBytes    int    `mapstructure:"id_bytes"`    // 0 = preset value
	ByteOrder  string `mapstructure:"byte_order"`  // big | little, empty = preset value
	IDMask     uint32 `mapstructure:"id_mask"`     // 0 = preset value
	MaxPayload int    `mapstructure:"max_payload"` // 0 = preset value
}

// Layout resolves the decoder layout.
func (c DecoderConfig) Layout() (decoder.Layout, error) {
	preset := c.Preset
	if preset == "" {
		preset = "default"
	}
	l, err := decoder.Preset(preset)
	if err != nil {
		return decoder.Layout{}, err
	}
	if c.IDBytes != 0 {
		l.IDBytes = c.IDBytes
	}
	if c.ByteOrder != "" {
		if l.Order, err = decoder.ParseByteOrder(c.ByteOrder); err != nil {
			return decoder.Layout{}, err
		}
	}
	if c.IDMask != 0 {
		l.IDMask = c.IDMask
	}
	if c.MaxPayload != 0 {
		l.MaxPayload = c.MaxPayload
	}
	if err := l.Validate(); err != nil {
		return decoder.Layout{}, err
	}
	return l, nil
}

// ─── Input ───

// InputConfig configures network frame sources.
type InputConfig struct {
	Kafka KafkaInputConfig `mapstructure:"kafka"`
}

// KafkaInputConfig configures the kafka frame source.
type KafkaInputConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	Topic           string   `mapstructure:"topic"`
	GroupID         string   `mapstructure:"group_id"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // earliest | latest
}

// ─── Registry ───

// RegistryConfig locates the identifier registry. File wins over Redis.
type RegistryConfig struct {
	File  string      `mapstructure:"file"`
	Watch bool        `mapstructure:"watch"` // Reload File on change
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig points at a registry stored as a redis hash.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// ─── Output ───

// Output formats
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatCBOR  = "cbor"
	FormatKafka = "kafka"
)

// OutputConfig selects the sink.
type OutputConfig struct {
	Format string      `mapstructure:"format"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// KafkaConfig configures the kafka sink.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	Compression  string        `mapstructure:"compression"` // none | gzip | snappy | lz4 | zstd
}

// ─── Pipeline ───

// Error policies
const (
	OnErrorSkip = "skip"
	OnErrorStop = "stop"
)

// PipelineConfig controls how decode failures are handled.
type PipelineConfig struct {
	OnError string `mapstructure:"on_error"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Loading ───

// EnvPrefix prefixes environment overrides, e.g. CANFRAME_LOG_LEVEL.
const EnvPrefix = "CANFRAME"

// Load loads configuration from path. An empty path yields defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	// Decoder defaults
	v.SetDefault("decoder.preset", "default")
	v.SetDefault("decoder.id_bytes", 0)
	v.SetDefault("decoder.byte_order", "")
	v.SetDefault("decoder.id_mask", 0)
	v.SetDefault("decoder.max_payload", 0)

	// Input defaults
	v.SetDefault("input.kafka.brokers", []string{})
	v.SetDefault("input.kafka.topic", "")
	v.SetDefault("input.kafka.group_id", "canframe")
	v.SetDefault("input.kafka.auto_offset_reset", "latest")

	// Registry defaults
	v.SetDefault("registry.file", "")
	v.SetDefault("registry.watch", false)
	v.SetDefault("registry.redis.addr", "")
	v.SetDefault("registry.redis.password", "")
	v.SetDefault("registry.redis.db", 0)
	v.SetDefault("registry.redis.key", "canframe:registry")

	// Output defaults
	v.SetDefault("output.format", FormatText)
	v.SetDefault("output.kafka.brokers", []string{})
	v.SetDefault("output.kafka.topic", "")
	v.SetDefault("output.kafka.batch_size", 100)
	v.SetDefault("output.kafka.batch_timeout", "100ms")
	v.SetDefault("output.kafka.compression", "snappy")

	// Pipeline defaults
	v.SetDefault("pipeline.on_error", OnErrorSkip)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pattern", log.DefaultPattern)
	v.SetDefault("log.time", log.DefaultTime)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", ":9102")
	v.SetDefault("metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and fills runtime defaults.
func (cfg *Config) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	if _, err := logrus.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("%w: invalid log level: %s", core.ErrConfigInvalid, cfg.Log.Level)
	}

	// ── Decoder validation ──
	if _, err := cfg.Decoder.Layout(); err != nil {
		return err
	}

	// ── Input validation ──
	switch cfg.Input.Kafka.AutoOffsetReset {
	case "", "earliest", "latest":
	default:
		return fmt.Errorf("%w: invalid input.kafka.auto_offset_reset: %s (must be earliest/latest)", core.ErrConfigInvalid, cfg.Input.Kafka.AutoOffsetReset)
	}

	// ── Output validation ──
	cfg.Output.Format = strings.ToLower(cfg.Output.Format)
	switch cfg.Output.Format {
	case "":
		cfg.Output.Format = FormatText
	case FormatText, FormatJSON, FormatCBOR:
	case FormatKafka:
		if len(cfg.Output.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: output.kafka.brokers is required when output.format=kafka", core.ErrConfigInvalid)
		}
		if cfg.Output.Kafka.Topic == "" {
			return fmt.Errorf("%w: output.kafka.topic is required when output.format=kafka", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: invalid output format: %s (must be text/json/cbor/kafka)", core.ErrConfigInvalid, cfg.Output.Format)
	}

	// ── Pipeline validation ──
	switch cfg.Pipeline.OnError {
	case "":
		cfg.Pipeline.OnError = OnErrorSkip
	case OnErrorSkip, OnErrorStop:
	default:
		return fmt.Errorf("%w: invalid pipeline.on_error: %s (must be skip/stop)", core.ErrConfigInvalid, cfg.Pipeline.OnError)
	}

	// ── Metrics validation ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics.enabled=true", core.ErrConfigInvalid)
	}

	return nil
}
