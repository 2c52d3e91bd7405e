package topk

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/index"
)

// Result is the outcome of a two-keyword query.
type Result struct {
	Keywords  [2]string `json:"keywords"`
	Hits      []Hit     `json:"results"`
	Documents []string  `json:"documents"`
	Version   uint64    `json:"index_version"`
}

// ListReader is the part of the keyword index a query needs.
type ListReader interface {
	Read(keywords ...string) ([]index.OccurrenceList, uint64)
}

type Engine struct {
	index  ListReader
	logger *slog.Logger
}

func NewEngine(idx ListReader) *Engine {
	return &Engine{
		index:  idx,
		logger: slog.Default().With("component", "topk-engine"),
	}
}

// Search runs "kw1 OR kw2". An empty keyword is treated as absent from
// the index.
func (e *Engine) Search(kw1, kw2 string) *Result {
	lists, version := e.index.Read(kw1, kw2)
	if kw1 == "" {
		lists[0] = nil
	}
	if kw2 == "" {
		lists[1] = nil
	}
	hits := search(lists[0], lists[1], kw1, kw2)
	e.logger.Debug("top-k query executed",
		"keyword1", kw1,
		"keyword2", kw2,
		"candidates1", len(lists[0]),
		"candidates2", len(lists[1]),
		"results", len(hits),
	)
	return &Result{
		Keywords:  [2]string{kw1, kw2},
		Hits:      hits,
		Documents: Documents(hits),
		Version:   version,
	}
}
