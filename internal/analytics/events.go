// Package analytics records what the searcher is asked and how it answers.
// Events are aggregated in process and, when Kafka is enabled, published to
// the analytics topic in batches.
package analytics

import "time"

type EventType string

const (
	EventQuery      EventType = "query"
	EventZeroResult EventType = "zero_result"
	EventIndexDoc   EventType = "index_document"
)

type QueryEvent struct {
	Type         EventType `json:"type"`
	Query        string    `json:"query"`
	Keywords     [2]string `json:"keywords"`
	Returned     int       `json:"returned"`
	LatencyUs    int64     `json:"latency_us"`
	CacheHit     bool      `json:"cache_hit"`
	IndexVersion uint64    `json:"index_version"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
}

type IndexEvent struct {
	Type      EventType `json:"type"`
	Document  string    `json:"document"`
	Keywords  int       `json:"keywords"`
	Tokens    int       `json:"tokens"`
	Version   uint64    `json:"index_version"`
	Timestamp time.Time `json:"timestamp"`
}
