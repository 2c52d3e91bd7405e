// Package validator provides input validation for ingestion requests. It
// enforces name and body constraints and returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion"
)

const (
	maxNameLength           = 255
	maxIdempotencyKeyLength = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks the request's name, body and idempotency key.
// maxBodyBytes of zero disables the body size check.
func ValidateIngestRequest(req *ingestion.IngestRequest, maxBodyBytes int64) error {
	errs := make(map[string]string)

	name := req.Name
	switch {
	case strings.TrimSpace(name) == "":
		errs["name"] = "name is required"
	case len(name) > maxNameLength:
		errs["name"] = fmt.Sprintf("name must be at most %d characters", maxNameLength)
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		errs["name"] = "name must not contain whitespace"
	}

	if strings.TrimSpace(req.Body) == "" {
		errs["body"] = "body is required and must not be empty"
	} else if maxBodyBytes > 0 && int64(len(req.Body)) > maxBodyBytes {
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", maxBodyBytes)
	}

	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
