package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/mcoot/bughunt/internal/events"
	"github.com/mcoot/bughunt/internal/model"
)

// Config holds Kafka producer configuration
type Config struct {
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long the async writer buffers before flushing
	BatchTimeout time.Duration
}

// DefaultConfig returns sensible defaults for the event producer
func DefaultConfig() Config {
	return Config{
		Brokers:      []string{"localhost:9092"},
		Topic:        "bughunt.events",
		BatchTimeout: 50 * time.Millisecond,
	}
}

// messageWriter is the subset of *kafka.Writer the publisher uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes domain events to a Kafka topic, keyed so that every event
// for one game lands on the same partition in order.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// Ensure Publisher implements events.Publisher
var _ events.Publisher = (*Publisher)(nil)

// New creates an asynchronous Kafka publisher. Delivery failures are logged
// from the writer's completion callback rather than returned to callers.
func New(cfg Config, logger *slog.Logger) *Publisher {
	logger = logger.With(slog.String("component", "kafka-publisher"), slog.String("topic", cfg.Topic))

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("kafka delivery failed",
					slog.Int("messages", len(messages)),
					slog.String("error", err.Error()))
			}
		},
	}

	return NewWithWriter(writer, logger)
}

// NewWithWriter creates a publisher over an existing writer (for testing)
func NewWithWriter(writer messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{writer: writer, logger: logger}
}

// Publish encodes the event and hands it to the writer
func (p *Publisher) Publish(ctx context.Context, event model.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
