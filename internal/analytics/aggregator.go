package analytics

import (
	"sort"
	"sync"
	"time"
)

const (
	// maxLatencySamples bounds the latency window used for percentiles.
	maxLatencySamples  = 10000
	defaultTopKeywords = 10
)

type AggregatedStats struct {
	TotalQueries       int64          `json:"total_queries"`
	TotalDocIndexed    int64          `json:"total_docs_indexed"`
	CacheHits          int64          `json:"cache_hits"`
	CacheMisses        int64          `json:"cache_misses"`
	ZeroResultCount    int64          `json:"zero_result_count"`
	AvgLatencyUs       float64        `json:"avg_latency_us"`
	P50LatencyUs       int64          `json:"p50_latency_us"`
	P95LatencyUs       int64          `json:"p95_latency_us"`
	P99LatencyUs       int64          `json:"p99_latency_us"`
	TopKeywords        []KeywordCount `json:"top_keywords"`
	ZeroResultKeywords []KeywordCount `json:"zero_result_keywords"`
	QueriesPerMinute   float64        `json:"queries_per_minute"`
}

// KeywordActivity is how often one keyword was queried.
type KeywordActivity struct {
	Keyword     string `json:"keyword"`
	Queries     int64  `json:"queries"`
	ZeroResults int64  `json:"zero_results"`
}

type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int64  `json:"count"`
}

// Aggregator keeps running query and indexing statistics.
type Aggregator struct {
	mu                 sync.Mutex
	totalQueries       int64
	totalDocIndexed    int64
	cacheHits          int64
	cacheMisses        int64
	zeroResults        int64
	latencies          []int64
	next               int
	keywordCounts      map[string]int64
	zeroResultKeywords map[string]int64
	startTime          time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:          make([]int64, 0, 1024),
		keywordCounts:      make(map[string]int64),
		zeroResultKeywords: make(map[string]int64),
		startTime:          time.Now(),
	}
}

// Record folds one event into the statistics. Unknown event types are
// ignored.
func (a *Aggregator) Record(event any) {
	switch ev := event.(type) {
	case QueryEvent:
		a.recordQuery(ev)
	case IndexEvent:
		a.mu.Lock()
		a.totalDocIndexed++
		a.mu.Unlock()
	}
}

func (a *Aggregator) recordQuery(event QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalQueries++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyUs)
	} else {
		a.latencies[a.next] = event.LatencyUs
		a.next = (a.next + 1) % maxLatencySamples
	}
	for _, kw := range event.Keywords {
		if kw == "" {
			continue
		}
		a.keywordCounts[kw]++
		if event.Returned == 0 {
			a.zeroResultKeywords[kw]++
		}
	}
	if event.Returned == 0 {
		a.zeroResults++
	}
}

// Stats returns the current statistics with the ten most frequent keywords.
func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(defaultTopKeywords)
}

// StatsTop is Stats with the keyword rankings cut to n entries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalQueries:    a.totalQueries,
		TotalDocIndexed: a.totalDocIndexed,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyUs = float64(sum) / float64(len(sorted))
		stats.P50LatencyUs = percentile(sorted, 50)
		stats.P95LatencyUs = percentile(sorted, 95)
		stats.P99LatencyUs = percentile(sorted, 99)
	}
	stats.TopKeywords = topN(a.keywordCounts, n)
	stats.ZeroResultKeywords = topN(a.zeroResultKeywords, n)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

// Keyword reports the query counts for one keyword.
func (a *Aggregator) Keyword(keyword string) KeywordActivity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return KeywordActivity{
		Keyword:     keyword,
		Queries:     a.keywordCounts[keyword],
		ZeroResults: a.zeroResultKeywords[keyword],
	}
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN orders by count, then keyword, so equal counts list stably.
func topN(counts map[string]int64, n int) []KeywordCount {
	result := make([]KeywordCount, 0, len(counts))
	for kw, count := range counts {
		result = append(result, KeywordCount{Keyword: kw, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Keyword < result[j].Keyword
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
