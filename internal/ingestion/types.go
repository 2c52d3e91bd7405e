// Package ingestion defines the request/response types and Kafka event schemas
// used by the document ingestion pipeline.
package ingestion

import "time"

// Document catalog statuses.
const (
	StatusPending = "PENDING"
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
// Name is the document identifier that search results report.
type IngestRequest struct {
	Name           string `json:"name"`
	Body           string `json:"body"`
	IdempotencyKey string `json:"idempotency_key"`
}

// IngestResponse is returned to the caller after a document is accepted.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// IngestEvent is the Kafka message payload produced after a document is
// cataloged and ready for indexing.
type IngestEvent struct {
	DocumentID string    `json:"document_id"`
	Name       string    `json:"name"`
	Body       string    `json:"body"`
	IngestedAt time.Time `json:"ingested_at"`
}
