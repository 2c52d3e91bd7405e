package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
)

// BatchPublisher is satisfied by *kafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector records events into an Aggregator synchronously and forwards
// them to Kafka in batches from a background loop. Either side may be nil.
type Collector struct {
	producer      BatchPublisher
	aggregator    *Aggregator
	eventCh       chan any
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

func NewCollector(producer BatchPublisher, aggregator *Aggregator, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &Collector{
		producer:      producer,
		aggregator:    aggregator,
		eventCh:       make(chan any, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the publish loop. It returns immediately.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, toKafka(event))
				if len(batch) >= c.batchSize {
					batch = c.flush(ctx, batch)
				}
			case <-ticker.C:
				batch = c.flush(ctx, batch)
			case <-ctx.Done():
				c.drainRemaining(batch)
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"kafka", c.producer != nil,
	)
}

// Track records event and queues it for publishing without blocking.
func (c *Collector) Track(event any) {
	if c.aggregator != nil {
		c.aggregator.Record(event)
	}
	if c.producer == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops the loop after flushing queued events. Start must have been
// called.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) []kafka.Event {
	if len(batch) == 0 || c.producer == nil {
		return batch[:0]
	}
	if err := c.producer.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics batch", "count", len(batch), "error", err)
	}
	return batch[:0]
}

func (c *Collector) drainRemaining(batch []kafka.Event) {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				c.flush(context.Background(), batch)
				return
			}
			batch = append(batch, toKafka(event))
		default:
			c.flush(context.Background(), batch)
			return
		}
	}
}

func toKafka(event any) kafka.Event {
	var typ EventType
	switch ev := event.(type) {
	case QueryEvent:
		typ = ev.Type
	case IndexEvent:
		typ = ev.Type
	}
	return kafka.Event{Key: "analytics", Type: string(typ), Value: event}
}
