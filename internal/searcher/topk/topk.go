// Package topk answers two-keyword OR queries against the keyword index.
// It walks both frequency-sorted occurrence lists with one cursor each and
// returns at most MaxResults distinct documents in ranked order.
package topk

import (
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/index"
)

// MaxResults caps the number of documents a query returns.
const MaxResults = 5

// Hit is one ranked document and the keyword occurrence that admitted it.
type Hit struct {
	Document  string `json:"document"`
	Frequency int    `json:"frequency"`
	Keyword   string `json:"keyword"`
}

type state int

const (
	bothActive state = iota
	onlyFirstActive
	onlySecondActive
	done
)

type walker struct {
	lists   [2]index.OccurrenceList
	labels  [2]string
	cursors [2]int
	hits    []Hit
	seen    map[string]struct{}
}

// Search merges the two lists into at most MaxResults hits. On equal
// frequencies the first list's document is taken and both cursors move;
// a document already accepted is skipped without using a result slot.
func Search(first, second index.OccurrenceList) []Hit {
	return search(first, second, "", "")
}

func search(first, second index.OccurrenceList, firstKeyword, secondKeyword string) []Hit {
	w := &walker{
		lists:  [2]index.OccurrenceList{first, second},
		labels: [2]string{firstKeyword, secondKeyword},
		hits:   make([]Hit, 0, MaxResults),
		seen:   make(map[string]struct{}, MaxResults),
	}
	for s := w.next(); s != done; s = w.next() {
		switch s {
		case onlyFirstActive:
			w.accept(0)
			w.cursors[0]++
		case onlySecondActive:
			w.accept(1)
			w.cursors[1]++
		case bothActive:
			f1 := w.current(0).Frequency
			f2 := w.current(1).Frequency
			switch {
			case f1 > f2:
				w.accept(0)
				w.cursors[0]++
			case f1 < f2:
				w.accept(1)
				w.cursors[1]++
			default:
				w.accept(0)
				w.cursors[0]++
				w.cursors[1]++
			}
		}
	}
	return w.hits
}

func (w *walker) next() state {
	if len(w.hits) >= MaxResults {
		return done
	}
	firstLeft := w.cursors[0] < len(w.lists[0])
	secondLeft := w.cursors[1] < len(w.lists[1])
	switch {
	case firstLeft && secondLeft:
		return bothActive
	case firstLeft:
		return onlyFirstActive
	case secondLeft:
		return onlySecondActive
	default:
		return done
	}
}

func (w *walker) current(side int) index.Occurrence {
	return w.lists[side][w.cursors[side]]
}

func (w *walker) accept(side int) {
	occ := w.current(side)
	if _, dup := w.seen[occ.Document]; dup {
		return
	}
	w.seen[occ.Document] = struct{}{}
	w.hits = append(w.hits, Hit{
		Document:  occ.Document,
		Frequency: occ.Frequency,
		Keyword:   w.labels[side],
	})
}

// Documents returns the document ids of hits in order.
func Documents(hits []Hit) []string {
	docs := make([]string, len(hits))
	for i, h := range hits {
		docs[i] = h.Document
	}
	return docs
}
