// Package catalog records ingested documents in PostgreSQL: their names,
// content hashes and indexing status.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

const schema = `CREATE TABLE IF NOT EXISTS documents (
    id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name            TEXT NOT NULL UNIQUE,
    content_hash    TEXT NOT NULL,
    content_size    INTEGER NOT NULL,
    idempotency_key TEXT UNIQUE,
    status          TEXT NOT NULL DEFAULT 'PENDING',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    indexed_at      TIMESTAMPTZ
)`

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint breach.
const uniqueViolation = "23505"

// Entry is a new catalog row.
type Entry struct {
	Name           string
	ContentHash    string
	ContentSize    int
	IdempotencyKey string
}

type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "catalog"),
	}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// Insert adds a PENDING document and returns its id. A name already in the
// catalog yields ErrDocumentExists; a reused idempotency key yields
// ErrIdempotencyConflict.
func (s *Store) Insert(ctx context.Context, e Entry) (string, error) {
	var docID string
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		var existing string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM documents WHERE name = $1`, e.Name).Scan(&existing)
		switch {
		case err == nil:
			return apperrors.Newf(apperrors.ErrDocumentExists, http.StatusConflict, "document %s already ingested", e.Name)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("looking up document name: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO documents (name, content_hash, content_size, idempotency_key, status)
		VALUES ($1, $2, $3, $4, 'PENDING')
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`, e.Name, e.ContentHash, e.ContentSize, nullableString(e.IdempotencyKey)).Scan(&docID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.ErrIdempotencyConflict, http.StatusConflict, "idempotency key already in use")
		}
		return err
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", apperrors.Newf(apperrors.ErrDocumentExists, http.StatusConflict, "document %s already ingested", e.Name)
		}
		return "", fmt.Errorf("inserting document: %w", err)
	}
	return docID, nil
}

// FindByIdempotencyKey returns the document recorded under key, or nil.
func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*ingestion.IngestResponse, error) {
	var resp ingestion.IngestResponse
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT id, name, status FROM documents WHERE idempotency_key = $1`, key).Scan(&resp.DocumentID, &resp.Name, &resp.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &resp, nil
}

// UpdateStatus sets a document's status and indexed_at timestamp.
func (s *Store) UpdateStatus(ctx context.Context, docID, status string) error {
	_, err := s.db.DB.ExecContext(ctx,
		`UPDATE documents SET status = $1, indexed_at = NOW() WHERE id = $2`,
		status, docID,
	)
	if err != nil {
		s.logger.Error("failed to update document status",
			"doc_id", docID,
			"status", status,
			"error", err,
		)
		return fmt.Errorf("updating status of %s: %w", docID, err)
	}
	return nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
