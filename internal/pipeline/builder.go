package pipeline

import (
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
	"firestige.xyz/canframe/internal/log"
	"firestige.xyz/canframe/internal/sink"
	"firestige.xyz/canframe/internal/source"
)

// Builder provides a fluent interface for building pipelines.
// This is an alternative to using Config directly.
type Builder struct {
	config Config
}

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithID sets the run ID.
func (b *Builder) WithID(id string) *Builder {
	b.config.ID = id
	return b
}

// WithSource sets the frame source.
func (b *Builder) WithSource(s source.Source) *Builder {
	b.config.Source = s
	return b
}

// WithDecoder sets the frame decoder.
func (b *Builder) WithDecoder(d decoder.FrameDecoder) *Builder {
	b.config.Decoder = d
	return b
}

// WithRegistry sets a provider consulted once per frame.
func (b *Builder) WithRegistry(r RegistryProvider) *Builder {
	b.config.Registry = r
	return b
}

// WithStaticRegistry sets a registry that never changes during the run.
func (b *Builder) WithStaticRegistry(r core.Registry) *Builder {
	b.config.Registry = StaticRegistry{Registry: r}
	return b
}

// WithSink sets the sink.
func (b *Builder) WithSink(s sink.Sink) *Builder {
	b.config.Sink = s
	return b
}

// WithOnError sets the decode error policy.
func (b *Builder) WithOnError(policy string) *Builder {
	b.config.OnError = policy
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(l log.Logger) *Builder {
	b.config.Logger = l
	return b
}

// Build creates the pipeline.
func (b *Builder) Build() (*Pipeline, error) {
	return New(b.config)
}
