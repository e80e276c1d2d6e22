// Package pipeline drives frames from a source through the decoder to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/core/decoder"
	"firestige.xyz/canframe/internal/log"
	"firestige.xyz/canframe/internal/metrics"
	"firestige.xyz/canframe/internal/sink"
	"firestige.xyz/canframe/internal/source"
)

// RegistryProvider hands out the registry to use for one frame.
// *registry.Store satisfies it.
type RegistryProvider interface {
	Snapshot() core.Registry
}

// StaticRegistry adapts a fixed registry to RegistryProvider.
type StaticRegistry struct {
	Registry core.Registry
}

func (s StaticRegistry) Snapshot() core.Registry { return s.Registry }

// Config contains pipeline configuration.
type Config struct {
	ID       string // Run identifier, generated when empty
	Source   source.Source
	Decoder  decoder.FrameDecoder
	Registry RegistryProvider
	Sink     sink.Sink
	OnError  string // config.OnErrorSkip (default) or config.OnErrorStop
	Logger   log.Logger
}

// Pipeline is a single-threaded decode chain. Run it once.
type Pipeline struct {
	id          string
	source      source.Source
	decoder     decoder.FrameDecoder
	registry    RegistryProvider
	sink        sink.Sink
	stopOnError bool
	logger      log.Logger
	metrics     *Metrics
}

// New creates a pipeline. Source, Registry and Sink are required.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Source == nil || cfg.Registry == nil || cfg.Sink == nil {
		return nil, fmt.Errorf("%w: pipeline needs a source, a registry and a sink", core.ErrConfigInvalid)
	}
	switch cfg.OnError {
	case "", config.OnErrorSkip, config.OnErrorStop:
	default:
		return nil, fmt.Errorf("%w: invalid on_error policy: %s (must be skip/stop)", core.ErrConfigInvalid, cfg.OnError)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = decoder.FrameDecoderFunc(decoder.Decode)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLogger()
	}

	return &Pipeline{
		id:          cfg.ID,
		source:      cfg.Source,
		decoder:     cfg.Decoder,
		registry:    cfg.Registry,
		sink:        cfg.Sink,
		stopOnError: cfg.OnError == config.OnErrorStop,
		logger:      cfg.Logger.WithField("run_id", cfg.ID),
		metrics:     &Metrics{},
	}, nil
}

// ID returns the run identifier.
func (p *Pipeline) ID() string {
	return p.id
}

// Run processes frames until the source is exhausted, ctx is cancelled or a
// fatal error occurs. Source and sink errors are always fatal; decode errors
// are fatal only under the stop policy, which wraps them in
// core.ErrPipelineStopped. Stats reflect every frame seen.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	p.logger.Debug("pipeline starting")

	for {
		if err := ctx.Err(); err != nil {
			return p.finish(err)
		}

		raw, err := p.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return p.finish(nil)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return p.finish(ctxErr)
			}
			return p.finish(fmt.Errorf("read frame: %w", err))
		}

		if err := p.processFrame(ctx, raw); err != nil {
			return p.finish(err)
		}
	}
}

// processFrame decodes one frame against the current registry snapshot.
func (p *Pipeline) processFrame(ctx context.Context, raw core.RawFrame) error {
	p.metrics.Frames.Add(1)

	registry := p.registry.Snapshot()
	msg, err := p.decoder.Decode(raw.Data, registry)
	if err != nil {
		kind := core.KindOf(err)
		if kind == core.KindNone {
			kind = core.KindOther
		}
		p.metrics.recordError(kind)
		metrics.FramesTotal.WithLabelValues(metrics.ResultRejected).Inc()
		metrics.DecodeErrorsTotal.WithLabelValues(kind.String()).Inc()

		p.logger.WithFields(map[string]interface{}{
			"source": raw.Source,
			"kind":   kind.String(),
		}).WithError(err).Warn("frame rejected")

		if p.stopOnError {
			return fmt.Errorf("%w: %s: %w", core.ErrPipelineStopped, raw.Source, err)
		}
		return nil
	}

	var name string
	if registry != nil {
		name, _ = registry.Lookup(msg.ID)
	}

	p.metrics.Decoded.Add(1)
	metrics.FramesTotal.WithLabelValues(metrics.ResultDecoded).Inc()
	metrics.PayloadBytes.Observe(float64(len(msg.Payload)))

	frame := core.DecodedFrame{
		Timestamp: raw.Timestamp,
		Source:    raw.Source,
		Message:   msg,
		Name:      name,
	}
	if err := p.sink.Write(ctx, frame); err != nil {
		p.metrics.SinkErrors.Add(1)
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (p *Pipeline) finish(err error) (Stats, error) {
	stats := p.Stats()
	entry := p.logger.WithFields(map[string]interface{}{
		"frames":  stats.Frames,
		"decoded": stats.Decoded,
		"errors":  stats.Errors(),
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		entry.WithError(err).Error("pipeline stopped")
	} else {
		entry.Info("pipeline finished")
	}
	return stats, err
}

// Stats returns counters for the frames processed so far.
func (p *Pipeline) Stats() Stats {
	return p.metrics.snapshot()
}
