package indexer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/index"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
)

// Summary describes one merged document.
type Summary struct {
	Document string `json:"document"`
	Keywords int    `json:"keywords"`
	Tokens   int    `json:"tokens"`
	Version  uint64 `json:"index_version"`
}

// Engine is the only writer of a KeywordIndex. It validates each document at
// the ingestion boundary and merges documents one at a time, in the order
// they arrive.
type Engine struct {
	mu      sync.Mutex
	idx     *index.KeywordIndex
	tok     *tokenizer.Tokenizer
	cfg     config.IndexerConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
	docs    []string
	seen    map[string]struct{}
}

// NewEngine creates an Engine over a fresh index. m may be nil.
func NewEngine(cfg config.IndexerConfig, tok *tokenizer.Tokenizer, m *metrics.Metrics) *Engine {
	if tok == nil {
		tok = tokenizer.New(nil)
	}
	e := &Engine{
		idx:     index.NewKeywordIndex(),
		tok:     tok,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
		seen:    make(map[string]struct{}),
	}
	if m != nil {
		e.idx.SetProbeObserver(func(_ string, probes []int) {
			m.InsertProbeDepth.Observe(float64(len(probes)))
		})
	}
	return e
}

// IndexDocument reads a document body, extracts its keywords and merges them.
func (e *Engine) IndexDocument(ctx context.Context, docID string, r io.Reader) (Summary, error) {
	body, err := e.readBody(r)
	if err != nil {
		e.reject("too_large")
		return Summary{}, fmt.Errorf("document %s: %w", docID, err)
	}
	// The body is already in memory, so a scan error means a word overran
	// the scanner buffer.
	tokens, err := e.tok.Scan(bytes.NewReader(body))
	if err != nil {
		e.reject("unscannable")
		return Summary{}, apperrors.Invalid("scanning document %s: %v", docID, err)
	}
	return e.merge(ctx, docID, CountKeywords(docID, tokens), len(tokens))
}

// IndexText is IndexDocument for an in-memory body.
func (e *Engine) IndexText(ctx context.Context, docID, text string) (Summary, error) {
	return e.IndexDocument(ctx, docID, strings.NewReader(text))
}

// MergeKeywords merges a precomputed keyword table for docID. Every
// occurrence must name docID and carry a frequency of at least one.
func (e *Engine) MergeKeywords(ctx context.Context, docID string, kws map[string]index.Occurrence) (Summary, error) {
	tokens := 0
	for _, occ := range kws {
		tokens += occ.Frequency
	}
	return e.merge(ctx, docID, kws, tokens)
}

func (e *Engine) merge(ctx context.Context, docID string, kws map[string]index.Occurrence, tokens int) (Summary, error) {
	if err := ctx.Err(); err != nil {
		return Summary{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validate(docID, kws); err != nil {
		return Summary{}, err
	}

	start := time.Now()
	e.idx.MergeDocument(kws)
	elapsed := time.Since(start)

	e.docs = append(e.docs, docID)
	e.seen[docID] = struct{}{}
	version := e.idx.Version()

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Inc()
		e.metrics.MergeDuration.Observe(elapsed.Seconds())
		e.metrics.KeywordsTotal.Set(float64(e.idx.Len()))
	}
	e.logger.Debug("document merged",
		"doc_id", docID,
		"keywords", len(kws),
		"tokens", tokens,
		"version", version,
		"duration", elapsed,
	)
	return Summary{
		Document: docID,
		Keywords: len(kws),
		Tokens:   tokens,
		Version:  version,
	}, nil
}

// validate must be called with e.mu held.
func (e *Engine) validate(docID string, kws map[string]index.Occurrence) error {
	if strings.TrimSpace(docID) == "" {
		e.reject("invalid_id")
		return apperrors.Invalid("document identifier is empty")
	}
	if _, dup := e.seen[docID]; dup {
		e.reject("duplicate")
		return fmt.Errorf("document %s: %w", docID, apperrors.ErrDocumentExists)
	}
	for keyword, occ := range kws {
		switch {
		case keyword == "":
			e.reject("invalid_occurrence")
			return apperrors.Invalid("document %s: empty keyword", docID)
		case occ.Document != docID:
			e.reject("invalid_occurrence")
			return apperrors.Invalid("keyword %q names document %q, expected %q", keyword, occ.Document, docID)
		case occ.Frequency < 1:
			e.reject("invalid_occurrence")
			return apperrors.Invalid("keyword %q in %s has frequency %d", keyword, docID, occ.Frequency)
		}
	}
	return nil
}

func (e *Engine) readBody(r io.Reader) ([]byte, error) {
	limit := e.cfg.MaxDocumentBytes
	if limit <= 0 {
		return io.ReadAll(r)
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, apperrors.Invalid("body exceeds %d bytes", limit)
	}
	return body, nil
}

func (e *Engine) reject(reason string) {
	if e.metrics != nil {
		e.metrics.DocsRejectedTotal.WithLabelValues(reason).Inc()
	}
}

// CountKeywords folds a document's tokens into one occurrence per keyword.
func CountKeywords(docID string, tokens []tokenizer.Token) map[string]index.Occurrence {
	kws := make(map[string]index.Occurrence)
	for _, tok := range tokens {
		occ, ok := kws[tok.Term]
		if !ok {
			occ = index.NewOccurrence(docID, 0)
		}
		occ.Frequency++
		kws[tok.Term] = occ
	}
	return kws
}

// HasDocument reports whether docID has already been merged.
func (e *Engine) HasDocument(docID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.seen[docID]
	return ok
}

// Documents returns merged document identifiers in merge order.
func (e *Engine) Documents() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.docs))
	copy(out, e.docs)
	return out
}

func (e *Engine) DocCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.docs)
}

// Index exposes the underlying index for readers.
func (e *Engine) Index() *index.KeywordIndex {
	return e.idx
}

func (e *Engine) Tokenizer() *tokenizer.Tokenizer {
	return e.tok
}

// IsDuplicate reports whether err is a repeated-document rejection.
func IsDuplicate(err error) bool {
	return errors.Is(err, apperrors.ErrDocumentExists)
}
