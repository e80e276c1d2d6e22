// Package kafka consumes raw frames from a Kafka topic.
// Each message value is one frame in the decoder's layout.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"firestige.xyz/canframe/internal/config"
	"firestige.xyz/canframe/internal/core"
	"firestige.xyz/canframe/internal/log"
)

// messageReader is the part of *kafka.Reader the source uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Source reads frames until its context is cancelled. It never returns io.EOF.
type Source struct {
	reader     messageReader
	retryDelay time.Duration
	logger     log.Logger
}

// NewSource creates a consumer-group reader for cfg.Topic.
func NewSource(cfg config.KafkaInputConfig) (*Source, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("%w: input.kafka.brokers is required", core.ErrConfigInvalid)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("%w: input.kafka.topic is required", core.ErrConfigInvalid)
	}
	if cfg.GroupID == "" {
		return nil, fmt.Errorf("%w: input.kafka.group_id is required", core.ErrConfigInvalid)
	}

	var startOffset int64
	switch cfg.AutoOffsetReset {
	case "earliest":
		startOffset = kafka.FirstOffset
	default:
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		StartOffset:    startOffset,
		MinBytes:       1,
		MaxBytes:       10 << 20,
		CommitInterval: time.Second,
		MaxWait:        time.Second,
	})

	logger := log.GetLogger().WithFields(map[string]interface{}{
		"brokers":  cfg.Brokers,
		"topic":    cfg.Topic,
		"group_id": cfg.GroupID,
	})
	logger.Info("kafka frame source started")

	return newSourceWithReader(reader, logger), nil
}

func newSourceWithReader(r messageReader, logger log.Logger) *Source {
	return &Source{reader: r, retryDelay: 5 * time.Second, logger: logger}
}

// Next fetches and commits the next message. Fetch errors other than
// cancellation are logged and retried.
func (s *Source) Next(ctx context.Context) (core.RawFrame, error) {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return core.RawFrame{}, err
			}
			s.logger.WithError(err).Error("failed to fetch kafka message")
			select {
			case <-ctx.Done():
				return core.RawFrame{}, ctx.Err()
			case <-time.After(s.retryDelay):
				continue
			}
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.logger.WithError(err).Warn("failed to commit kafka message")
		}

		ts := msg.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		return core.RawFrame{
			Data:      msg.Value,
			Timestamp: ts,
			Source:    fmt.Sprintf("%s/%d@%d", msg.Topic, msg.Partition, msg.Offset),
		}, nil
	}
}

func (s *Source) Close() error {
	return s.reader.Close()
}
