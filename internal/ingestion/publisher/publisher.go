// Package publisher catalogs documents in PostgreSQL and publishes ingest
// events to Kafka for downstream indexing. Every event carries the same
// partition key, so the indexer sees documents in the order they were
// accepted.
package publisher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/resilience"
)

const (
	// PartitionKey is the Kafka key of every ingest event. One key keeps
	// all documents on one partition, in the order they were accepted.
	PartitionKey = "documents"
	EventType    = "document.ingest"
)

// EventPublisher is satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates document cataloging and Kafka event production.
type Publisher struct {
	catalog  *catalog.Store
	producer EventPublisher
	retry    resilience.RetryConfig
	logger   *slog.Logger
}

// New creates a Publisher with the given catalog and Kafka producer.
func New(store *catalog.Store, producer EventPublisher, retry resilience.RetryConfig) *Publisher {
	return &Publisher{
		catalog:  store,
		producer: producer,
		retry:    retry,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest catalogs the document and publishes an IngestEvent to Kafka. A
// repeated idempotency key returns the earlier response without
// re-insertion. When publishing keeps failing the document is marked
// FAILED and ErrUnavailable is returned.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if req.IdempotencyKey != "" {
		existing, err := p.catalog.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			p.logger.Info("duplicate ingestion detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.DocumentID,
			)
			return existing, nil
		}
	}

	docID, err := p.catalog.Insert(ctx, catalog.Entry{
		Name:           req.Name,
		ContentHash:    fmt.Sprintf("%x", sha256.Sum256([]byte(req.Body))),
		ContentSize:    len(req.Body),
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	event := kafka.Event{
		Key:  PartitionKey,
		Type: EventType,
		Value: ingestion.IngestEvent{
			DocumentID: docID,
			Name:       req.Name,
			Body:       req.Body,
			IngestedAt: time.Now().UTC(),
		},
	}
	err = resilience.Retry(ctx, "publish-ingest-event", p.retry, func() error {
		if err := p.producer.Publish(ctx, event); err != nil {
			if ctx.Err() != nil {
				return resilience.Permanent(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		p.logger.Error("failed to publish to kafka",
			"doc_id", docID,
			"name", req.Name,
			"error", err,
		)
		if uerr := p.catalog.UpdateStatus(ctx, docID, ingestion.StatusFailed); uerr != nil {
			p.logger.Error("document left in PENDING", "doc_id", docID, "error", uerr)
		}
		return nil, apperrors.Newf(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "publishing %s: %v", req.Name, err)
	}

	return &ingestion.IngestResponse{
		DocumentID: docID,
		Name:       req.Name,
		Status:     ingestion.StatusPending,
	}, nil
}
