package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/segmentio/kafka-go"
)

// Event is the unit of data published to Kafka. Key is used for partition
// hashing, Value is JSON-serialised and Type, when set, travels as the
// event-type header.
type Event struct {
	Key   string
	Type  string
	Value any
}

const (
	headerContentType = "content-type"
	headerEventType   = "event-type"
)

// ProducerOption adjusts the writer a Producer is built on.
type ProducerOption func(*kafka.Writer)

// WithBatching trades latency for throughput. Publish still blocks until
// its batch is written.
func WithBatching(size int, timeout time.Duration) ProducerOption {
	return func(w *kafka.Writer) {
		w.BatchSize = size
		w.BatchTimeout = timeout
	}
}

// Producer publishes JSON-encoded events to a Kafka topic.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer creates a Producer for the given topic. Messages sharing a key
// land on the same partition and keep their publish order.
func NewProducer(cfg config.KafkaConfig, topic string, opts ...ProducerOption) *Producer {
	w := writer(cfg, topic, opts...)
	return &Producer{
		writer: w,
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish serialises a single event and writes it to Kafka synchronously.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	msg, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish message",
			"key", event.Key,
			"error", err,
		)
		return fmt.Errorf("publishing to kafka: %w", err)
	}
	p.logger.Debug("message published",
		"key", event.Key,
		"value_size", len(msg.Value),
	)
	return nil
}

// PublishBatch writes multiple events to Kafka in a single write call.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := encode(event)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}
	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.Error("failed to publish batch",
			"count", len(messages),
			"error", err,
		)
		return fmt.Errorf("publishing batch to kafka: %w", err)
	}
	p.logger.Debug("batch published", "count", len(messages))
	return nil
}

// Close flushes pending writes and closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func writer(cfg config.KafkaConfig, topic string, opts ...ProducerOption) *kafka.Writer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		RequiredAcks: kafka.RequireAll,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func encode(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshaling event value: %w", err)
	}
	headers := []kafka.Header{{Key: headerContentType, Value: []byte("application/json")}}
	if event.Type != "" {
		headers = append(headers, kafka.Header{Key: headerEventType, Value: []byte(event.Type)})
	}
	return kafka.Message{
		Key:     []byte(event.Key),
		Value:   value,
		Headers: headers,
	}, nil
}

// EventType returns the event-type header of a consumed message.
func EventType(headers []kafka.Header) string {
	for _, h := range headers {
		if h.Key == headerEventType {
			return string(h.Value)
		}
	}
	return ""
}
