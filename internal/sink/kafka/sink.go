// Package kafka publishes decoded frames to a Kafka topic.
// One message per frame: key is the hex identifier, value the JSON record.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/sink"
)

const (
	Name = "kafka"

	defaultBatchSize    = 100
	defaultBatchTimeout = 100 * time.Millisecond
)

func init() {
	sink.Register(Name, func(cfg config.OutputConfig, _ io.Writer) (sink.Sink, error) {
		return NewSink(cfg.Kafka)
	})
}

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink sends frames synchronously so write errors reach the pipeline.
type Sink struct {
	writer messageWriter

	sentCount  atomic.Uint64
	errorCount atomic.Uint64
}

// NewSink creates a sink writing to cfg.Topic.
func NewSink(cfg config.KafkaConfig) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink: brokers is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink: topic is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}

	compression, err := parseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{}, // Same identifier, same partition
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Compression:  compression,
		RequiredAcks: kafka.RequireOne,
	}
	return newSinkWithWriter(w), nil
}

func newSinkWithWriter(w messageWriter) *Sink {
	return &Sink{writer: w}
}

func parseCompression(name string) (kafka.Compression, error) {
	switch name {
	case "", "none":
		return 0, nil
	case "gzip":
		return kafka.Gzip, nil
	case "snappy":
		return kafka.Snappy, nil
	case "lz4":
		return kafka.Lz4, nil
	case "zstd":
		return kafka.Zstd, nil
	default:
		return 0, fmt.Errorf("kafka sink: invalid compression type: %s", name)
	}
}

func (s *Sink) Write(ctx context.Context, frame core.DecodedFrame) error {
	value, err := json.Marshal(sink.NewRecord(frame))
	if err != nil {
		return fmt.Errorf("kafka sink: marshal frame: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(sink.FormatID(frame.Message.ID)),
		Value: value,
		Time:  frame.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.errorCount.Add(1)
		return fmt.Errorf("kafka sink: write: %w", err)
	}
	s.sentCount.Add(1)
	return nil
}

// Stats returns sent and failed message counts.
func (s *Sink) Stats() (sent, failed uint64) {
	return s.sentCount.Load(), s.errorCount.Load()
}

func (s *Sink) Close() error {
	return s.writer.Close()
}
