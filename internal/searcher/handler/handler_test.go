package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/redis"
)

type fixture struct {
	engine *indexer.Engine
	mux    *http.ServeMux
	agg    *analytics.Aggregator
	m      *metrics.Metrics
	cache  *cache.QueryCache
}

// The corpus ranks deep as doc2, doc1, doc3 and world as doc3, doc1, doc2.
func newFixture(t *testing.T, withCache bool) *fixture {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	engine := indexer.NewEngine(config.IndexerConfig{MaxDocumentBytes: 1 << 20}, tokenizer.New(tokenizer.DefaultNoiseWords()), m)
	ctx := context.Background()
	for _, d := range []struct{ id, text string }{
		{"doc1", "deep deep world"},
		{"doc2", "deep deep deep world"},
		{"doc3", "world world world deep"},
	} {
		_, err := engine.IndexText(ctx, d.id, d.text)
		require.NoError(t, err)
	}

	f := &fixture{engine: engine, mux: http.NewServeMux(), agg: analytics.NewAggregator(), m: m}
	opts := Options{
		Collector: analytics.NewCollector(nil, f.agg, 10, 10, time.Hour),
		Metrics:   m,
	}
	if withCache {
		mr := miniredis.RunT(t)
		cfg := config.RedisConfig{Addr: mr.Addr(), CacheTTL: time.Minute, OpTimeout: time.Second}
		client, err := pkgredis.NewClient(cfg)
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		f.cache = cache.New(client, cfg, m)
		opts.Cache = f.cache
	}
	New(engine, opts).RegisterRoutes(f.mux)
	return f
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeSearch(t *testing.T, rec *httptest.ResponseRecorder) SearchResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp SearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotNil(t, resp.Result)
	return resp
}

func TestSearchQueryString(t *testing.T) {
	f := newFixture(t, false)
	resp := decodeSearch(t, f.get(t, "/api/v1/search?q=deep+OR+world"))

	assert.Equal(t, [2]string{"deep", "world"}, resp.Keywords)
	assert.Equal(t, []string{"doc2", "doc1", "doc3"}, resp.Documents)
	require.Len(t, resp.Hits, 3)
	assert.Equal(t, "deep", resp.Hits[0].Keyword)
	assert.Equal(t, 3, resp.Hits[0].Frequency)
	assert.Equal(t, uint64(3), resp.Version)
	assert.False(t, resp.CacheHit)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.SearchQueriesTotal.WithLabelValues("hit")))
	assert.Equal(t, int64(1), f.agg.Stats().TotalQueries)
}

func TestSearchKeywordParams(t *testing.T) {
	f := newFixture(t, false)
	resp := decodeSearch(t, f.get(t, "/api/v1/search?kw1=world&kw2=deep"))
	assert.Equal(t, []string{"doc3", "doc1", "doc2"}, resp.Documents)

	resp = decodeSearch(t, f.get(t, "/api/v1/search?kw1=world"))
	assert.Equal(t, []string{"doc3", "doc1", "doc2"}, resp.Documents)
}

func TestSearchAbsentKeywords(t *testing.T) {
	f := newFixture(t, false)
	resp := decodeSearch(t, f.get(t, "/api/v1/search?q=zebra+or+the"))
	assert.Empty(t, resp.Hits)
	assert.NotNil(t, resp.Documents)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.SearchQueriesTotal.WithLabelValues("zero_result")))
	assert.Equal(t, int64(1), f.agg.Stats().ZeroResultCount)
}

func TestSearchBadRequests(t *testing.T) {
	f := newFixture(t, false)
	for _, target := range []string{
		"/api/v1/search",
		"/api/v1/search?q=a+b+c",
		"/api/v1/search?kw1=&kw2=",
	} {
		rec := f.get(t, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(f.m.SearchQueriesTotal.WithLabelValues("error")))
}

func TestSearchUsesCacheUntilIndexChanges(t *testing.T) {
	f := newFixture(t, true)

	first := decodeSearch(t, f.get(t, "/api/v1/search?q=deep+or+world"))
	assert.False(t, first.CacheHit)
	second := decodeSearch(t, f.get(t, "/api/v1/search?q=deep+or+world"))
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Documents, second.Documents)

	_, err := f.engine.IndexText(context.Background(), "doc4", "deep deep deep deep")
	require.NoError(t, err)

	third := decodeSearch(t, f.get(t, "/api/v1/search?q=deep+or+world"))
	assert.False(t, third.CacheHit)
	assert.Equal(t, uint64(4), third.Version)
	assert.Equal(t, []string{"doc4", "doc2", "doc1", "doc3"}, third.Documents)

	stats := f.get(t, "/api/v1/cache/stats")
	require.Equal(t, http.StatusOK, stats.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(stats.Body).Decode(&body))
	assert.Equal(t, 1.0, body["hits"])
	assert.Equal(t, "closed", body["breaker"])
}

func TestCacheEndpointsWithoutCache(t *testing.T) {
	f := newFixture(t, false)
	rec := f.get(t, "/api/v1/cache/stats")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")

	rec = httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCacheInvalidate(t *testing.T) {
	f := newFixture(t, true)
	decodeSearch(t, f.get(t, "/api/v1/search?q=deep"))

	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeSearch(t, f.get(t, "/api/v1/search?q=deep"))
	assert.False(t, resp.CacheHit)
}

func TestKeywordEndpoint(t *testing.T) {
	f := newFixture(t, false)
	rec := f.get(t, "/api/v1/keywords/Deep")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp KeywordResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "deep", resp.Keyword)
	assert.Equal(t, []occurrenceOutput{{"doc2", 3}, {"doc1", 2}, {"doc3", 1}}, resp.Occurrences)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/v1/keywords/zebra").Code)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/v1/keywords/the").Code)
}

func TestStatsEndpoint(t *testing.T) {
	f := newFixture(t, false)
	rec := f.get(t, "/api/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatsResponse{Documents: 3, Keywords: 2, Occurrences: 6, IndexVersion: 3}, resp)
}
