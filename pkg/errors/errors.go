// Package errors defines the sentinel errors shared by the services and
// AppError, which pairs a sentinel with an HTTP status and a client-facing
// message.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentExists      = errors.New("document already indexed")
	ErrKeywordNotFound     = errors.New("keyword not found")
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
	ErrUnavailable         = errors.New("dependency unavailable")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// NotFound reports a keyword the index does not hold.
func NotFound(keyword string) *AppError {
	return Newf(ErrKeywordNotFound, http.StatusNotFound, "%q", keyword)
}

// Invalid wraps ErrInvalidInput with a 400 and a formatted message.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrKeywordNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDocumentExists), errors.Is(err, ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a short machine-readable name for err's sentinel, used as a
// log attribute.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDocumentExists):
		return "document_exists"
	case errors.Is(err, ErrKeywordNotFound):
		return "keyword_not_found"
	case errors.Is(err, ErrIdempotencyConflict):
		return "idempotency_conflict"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
