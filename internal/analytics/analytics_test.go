package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/kafka"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (r *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]kafka.Event, len(events))
	copy(cp, events)
	r.batches = append(r.batches, cp)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Keywords: [2]string{"deep", "world"}, Returned: 3, LatencyUs: 10, CacheHit: true})
	agg.Record(QueryEvent{Keywords: [2]string{"deep", ""}, Returned: 1, LatencyUs: 30})
	agg.Record(QueryEvent{Keywords: [2]string{"zebra", "quark"}, Returned: 0, LatencyUs: 20})
	agg.Record(IndexEvent{Document: "a.txt"})
	agg.Record("unknown")

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.TotalDocIndexed)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.Equal(t, int64(2), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, 20.0, stats.AvgLatencyUs)
	assert.Equal(t, int64(20), stats.P50LatencyUs)
	require.NotEmpty(t, stats.TopKeywords)
	assert.Equal(t, KeywordCount{Keyword: "deep", Count: 2}, stats.TopKeywords[0])
	assert.Equal(t, []KeywordCount{{"quark", 1}, {"zebra", 1}}, stats.ZeroResultKeywords)
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+50; i++ {
		agg.Record(QueryEvent{Keywords: [2]string{"k", ""}, Returned: 1, LatencyUs: int64(i)})
	}
	assert.Len(t, agg.latencies, maxLatencySamples)
	assert.Equal(t, int64(maxLatencySamples+50), agg.Stats().TotalQueries)
}

func TestCollectorPublishesBatches(t *testing.T) {
	pub := &recordingPublisher{}
	agg := NewAggregator()
	c := NewCollector(pub, agg, 100, 2, time.Hour)
	c.Start(context.Background())

	for i := 0; i < 5; i++ {
		c.Track(QueryEvent{Keywords: [2]string{"deep", ""}, Returned: 1})
	}
	c.Close()

	assert.Equal(t, 5, pub.count())
	assert.Equal(t, int64(5), agg.Stats().TotalQueries)
	for _, b := range pub.batches {
		assert.LessOrEqual(t, len(b), 2)
		assert.Equal(t, "analytics", b[0].Key)
	}
}

func TestCollectorWithoutProducer(t *testing.T) {
	agg := NewAggregator()
	c := NewCollector(nil, agg, 1, 1, time.Hour)
	c.Start(context.Background())
	c.Track(QueryEvent{Keywords: [2]string{"a", "b"}})
	c.Track(QueryEvent{Keywords: [2]string{"a", "b"}})
	c.Close()
	assert.Equal(t, int64(2), agg.Stats().TotalQueries)
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Keywords: [2]string{"deep", "world"}, Returned: 2})
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalQueries)
}

func TestHandlerRoutes(t *testing.T) {
	agg := NewAggregator()
	agg.Record(QueryEvent{Keywords: [2]string{"deep", "world"}, Returned: 2})
	agg.Record(QueryEvent{Keywords: [2]string{"deep", ""}, Returned: 1})
	agg.Record(QueryEvent{Keywords: [2]string{"ocean", ""}, Returned: 0})

	mux := http.NewServeMux()
	NewHandler(agg).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, []KeywordCount{{Keyword: "deep", Count: 2}}, stats.TopKeywords)
	assert.Equal(t, []KeywordCount{{Keyword: "ocean", Count: 1}}, stats.ZeroResultKeywords)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/keywords/ocean", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var activity KeywordActivity
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&activity))
	assert.Equal(t, KeywordActivity{Keyword: "ocean", Queries: 1, ZeroResults: 1}, activity)
}

func TestToKafkaCarriesEventType(t *testing.T) {
	assert.Equal(t, string(EventZeroResult), toKafka(QueryEvent{Type: EventZeroResult}).Type)
	assert.Equal(t, string(EventIndexDoc), toKafka(IndexEvent{Type: EventIndexDoc}).Type)
	assert.Empty(t, toKafka("other").Type)
}
