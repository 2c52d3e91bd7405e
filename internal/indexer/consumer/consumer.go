// Package consumer reads ingest events from Kafka and merges them into the
// keyword index through the indexer engine, one event at a time and in
// partition order.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
)

// StatusUpdater records the outcome of indexing a cataloged document.
// *catalog.Store satisfies it.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, docID, status string) error
}

// Runner is satisfied by *kafka.Consumer.
type Runner interface {
	Start(ctx context.Context) error
}

// Tracker is satisfied by *analytics.Collector.
type Tracker interface {
	Track(event any)
}

type handlerConfig struct {
	tracker Tracker
}

type HandlerOption func(*handlerConfig)

// WithTracker reports every indexed document to t.
func WithTracker(t Tracker) HandlerOption {
	return func(hc *handlerConfig) {
		hc.tracker = t
	}
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer Runner
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer Runner) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that merges every ingest
// event into engine. statuses may be nil.
//
// Undecodable events, repeated documents and documents the engine refuses
// (oversized bodies, words longer than the scanner buffer) are logged and
// acknowledged, and refused documents are marked FAILED. Any other failure,
// such as a cancelled context, is returned to the Kafka consumer, which logs
// it and moves on; the document is left out of the index until the topic is
// replayed.
func HandleMessage(engine *indexer.Engine, statuses StatusUpdater, opts ...HandlerOption) kafka.MessageHandler {
	var hc handlerConfig
	for _, opt := range opts {
		opt(&hc)
	}
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		logger.Debug("processing ingest event",
			"doc_id", event.DocumentID,
			"name", event.Name,
		)

		sum, err := engine.IndexText(ctx, event.Name, event.Body)
		switch {
		case err == nil:
		case indexer.IsDuplicate(err):
			logger.Warn("document already indexed, skipping",
				"doc_id", event.DocumentID,
				"name", event.Name,
			)
			return nil
		case errors.Is(err, apperrors.ErrInvalidInput):
			logger.Error("document rejected by indexer",
				"doc_id", event.DocumentID,
				"name", event.Name,
				"error", err,
			)
			updateStatus(ctx, statuses, event.DocumentID, ingestion.StatusFailed)
			return nil
		default:
			return fmt.Errorf("indexing document %s: %w", event.Name, err)
		}

		updateStatus(ctx, statuses, event.DocumentID, ingestion.StatusIndexed)
		if hc.tracker != nil {
			hc.tracker.Track(analytics.IndexEvent{
				Type:      analytics.EventIndexDoc,
				Document:  sum.Document,
				Keywords:  sum.Keywords,
				Tokens:    sum.Tokens,
				Version:   sum.Version,
				Timestamp: time.Now().UTC(),
			})
		}
		logger.Info("document indexed",
			"doc_id", event.DocumentID,
			"name", event.Name,
			"keywords", sum.Keywords,
			"version", sum.Version,
		)
		return nil
	}
}

func updateStatus(ctx context.Context, statuses StatusUpdater, docID, status string) {
	if statuses == nil || docID == "" {
		return
	}
	// the catalog logs its own failures; the index already holds the document
	_ = statuses.UpdateStatus(ctx, docID, status)
}
