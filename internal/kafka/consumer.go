// Package kafka consumes raw payloads from a Kafka topic and feeds them
// into the ingestion pipeline.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"lattice-siem/internal/schema"
)

// Config holds consumer settings.
type Config struct {
	Brokers        []string
	Topic          string
	ConsumerGroup  string
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration
	DialTimeout    time.Duration
}

// Handler receives each decoded payload. It is called from the consumer
// goroutine, one message at a time.
type Handler func(ctx context.Context, payload schema.RawPayload)

// Consumer reads raw payload messages from Kafka and hands them to a
// Handler. Messages that fail to decode are committed and dropped so a
// poison message cannot wedge the partition.
type Consumer struct {
	reader  *kafkago.Reader
	handler Handler
}

// NewConsumer creates a consumer for the given topic and group.
func NewConsumer(cfg Config, handler Handler) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic required")
	}
	if handler == nil {
		return nil, errors.New("kafka: handler required")
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.ConsumerGroup,
		MinBytes:       cfg.MinBytes,
		MaxBytes:       cfg.MaxBytes,
		MaxWait:        cfg.MaxWait,
		CommitInterval: cfg.CommitInterval,
		Dialer: &kafkago.Dialer{
			Timeout:   cfg.DialTimeout,
			DualStack: true,
		},
	})

	return &Consumer{reader: reader, handler: handler}, nil
}

// Run fetches and processes messages until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	slog.Info("kafka consumer started",
		"topic", c.reader.Config().Topic,
		"group", c.reader.Config().GroupID,
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		var payload schema.RawPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			slog.Warn("dropping undecodable kafka message",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		} else {
			c.handler(ctx, payload)
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Warn("kafka commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

// Close shuts down the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
