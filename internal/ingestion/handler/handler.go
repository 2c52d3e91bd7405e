package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
)

// Ingester is satisfied by *publisher.Publisher.
type Ingester interface {
	Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error)
}

type Handler struct {
	ingester     Ingester
	maxBodyBytes int64
	logger       *slog.Logger
}

func New(ing Ingester, maxBodyBytes int64) *Handler {
	return &Handler{
		ingester:     ing,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "ingestion-handler"),
	}
}

// RegisterRoutes mounts the ingestion endpoints on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/documents", h.Ingest)
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.maxBodyBytes > 0 {
		// JSON escaping can roughly double the body; leave room for it.
		r.Body = http.MaxBytesReader(w, r.Body, 2*h.maxBodyBytes+4096)
	}
	var req ingestion.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req, h.maxBodyBytes); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.ingester.Ingest(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(err)
		log.Error("ingestion failed",
			"name", req.Name,
			"error", err,
			"code", apperrors.Code(err),
			"status_code", statusCode,
		)
		h.writeError(w, statusCode, ingestErrorMessage(err))
		return
	}
	log.Info("document accepted",
		"doc_id", resp.DocumentID,
		"name", resp.Name,
	)
	h.writeJSON(w, http.StatusAccepted, resp)
}

func ingestErrorMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrDocumentExists):
		return "document already ingested"
	case errors.Is(err, apperrors.ErrIdempotencyConflict):
		return "idempotency key already in use"
	case errors.Is(err, apperrors.ErrUnavailable):
		return "indexing pipeline unavailable"
	default:
		return "ingestion failed"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
