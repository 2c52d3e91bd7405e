package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/topk"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/tracing"
)

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Query string `json:"query"`
	*topk.Result
	CacheHit bool  `json:"cache_hit"`
	TookUs   int64 `json:"took_us"`
}

// KeywordResponse lists every occurrence of one keyword.
type KeywordResponse struct {
	Keyword     string             `json:"keyword"`
	Occurrences []occurrenceOutput `json:"occurrences"`
}

type occurrenceOutput struct {
	Document  string `json:"document"`
	Frequency int    `json:"frequency"`
}

// StatsResponse summarizes the index.
type StatsResponse struct {
	Documents    int    `json:"documents"`
	Keywords     int    `json:"keywords"`
	Occurrences  int    `json:"occurrences"`
	IndexVersion uint64 `json:"index_version"`
}

// Options carries the optional collaborators of a Handler; nil fields are
// skipped.
type Options struct {
	Cache     *cache.QueryCache
	Collector *analytics.Collector
	Tracer    *tracing.Tracer
	Metrics   *metrics.Metrics
}

type Handler struct {
	engine    *indexer.Engine
	searcher  *topk.Engine
	cache     *cache.QueryCache
	collector *analytics.Collector
	tracer    *tracing.Tracer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func New(engine *indexer.Engine, opts Options) *Handler {
	return &Handler{
		engine:    engine,
		searcher:  topk.NewEngine(engine.Index()),
		cache:     opts.Cache,
		collector: opts.Collector,
		tracer:    opts.Tracer,
		metrics:   opts.Metrics,
		logger:    slog.Default().With("component", "search-handler"),
	}
}

// RegisterRoutes mounts the search endpoints on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/keywords/{keyword}", h.Keyword)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search answers ?q=kw1+OR+kw2 or ?kw1=..&kw2=.. with the top documents.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	requestID := middleware.GetRequestID(ctx)

	ctx, span := h.tracer.Start(ctx, "search", requestID)
	defer func() {
		span.End()
		span.Log()
	}()

	_, parseSpan := tracing.StartChildSpan(ctx, "parse")
	q, err := h.parse(r)
	parseSpan.End()
	if err != nil {
		h.countQuery("error")
		h.writeAppError(w, err)
		return
	}
	span.SetAttr("keyword1", q.Keywords[0])
	span.SetAttr("keyword2", q.Keywords[1])

	compute := func() (*topk.Result, error) {
		_, s := tracing.StartChildSpan(ctx, "topk")
		defer s.End()
		return h.searcher.Search(q.Keywords[0], q.Keywords[1]), nil
	}

	var result *topk.Result
	cacheHit := false
	cacheStatus := "disabled"
	if h.cache != nil && !q.Empty() {
		_, cacheSpan := tracing.StartChildSpan(ctx, "cache")
		result, cacheHit, err = h.cache.GetOrCompute(ctx, h.engine.Index().Version(), q.Keywords[0], q.Keywords[1], compute)
		cacheSpan.SetAttr("hit", cacheHit)
		cacheSpan.End()
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		result, err = compute()
	}
	if err != nil {
		log.Error("search execution failed", "query", q.RawQuery, "error", err)
		h.countQuery("error")
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	took := time.Since(start)
	resultType := "hit"
	if len(result.Hits) == 0 {
		resultType = "zero_result"
	}
	h.countQuery(resultType)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(took.Seconds())
		h.metrics.SearchResultsCount.Observe(float64(len(result.Hits)))
	}
	span.SetAttr("results", len(result.Hits))

	log.Info("search completed",
		"query", q.RawQuery,
		"keyword1", q.Keywords[0],
		"keyword2", q.Keywords[1],
		"returned", len(result.Hits),
		"cache", cacheStatus,
		"index_version", result.Version,
		"took", took,
	)
	if h.collector != nil {
		eventType := analytics.EventQuery
		if len(result.Hits) == 0 {
			eventType = analytics.EventZeroResult
		}
		h.collector.Track(analytics.QueryEvent{
			Type:         eventType,
			Query:        q.RawQuery,
			Keywords:     q.Keywords,
			Returned:     len(result.Hits),
			LatencyUs:    took.Microseconds(),
			CacheHit:     cacheHit,
			IndexVersion: result.Version,
			Timestamp:    time.Now().UTC(),
			RequestID:    requestID,
		})
	}

	h.writeJSON(w, http.StatusOK, SearchResponse{
		Query:    q.RawQuery,
		Result:   result,
		CacheHit: cacheHit,
		TookUs:   took.Microseconds(),
	})
}

func (h *Handler) parse(r *http.Request) (*parser.Query, error) {
	values := r.URL.Query()
	tok := h.engine.Tokenizer()
	if raw := values.Get("q"); raw != "" {
		return parser.Parse(raw, tok)
	}
	if values.Has("kw1") || values.Has("kw2") {
		return parser.FromKeywords(values.Get("kw1"), values.Get("kw2"), tok)
	}
	return nil, apperrors.Invalid("query parameter 'q' or 'kw1'/'kw2' is required")
}

// Keyword returns the full occurrence list of one keyword.
func (h *Handler) Keyword(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("keyword")
	kw, ok := h.engine.Tokenizer().Keyword(raw)
	if !ok {
		h.writeAppError(w, apperrors.NotFound(raw))
		return
	}
	list, found := h.engine.Index().Lookup(kw)
	if !found {
		h.writeAppError(w, apperrors.NotFound(kw))
		return
	}
	out := make([]occurrenceOutput, len(list))
	for i, occ := range list {
		out[i] = occurrenceOutput{Document: occ.Document, Frequency: occ.Frequency}
	}
	h.writeJSON(w, http.StatusOK, KeywordResponse{Keyword: kw, Occurrences: out})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	idx := h.engine.Index()
	h.writeJSON(w, http.StatusOK, StatsResponse{
		Documents:    h.engine.DocCount(),
		Keywords:     idx.Len(),
		Occurrences:  idx.Occurrences(),
		IndexVersion: idx.Version(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
		"breaker":  h.cache.BreakerState().String(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) countQuery(resultType string) {
	if h.metrics != nil {
		h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
