// Package index holds the keyword index: for every keyword, the documents
// it appears in ordered by descending frequency.
package index

import "fmt"

// Occurrence records how many times a keyword appears in one document.
type Occurrence struct {
	Document  string `json:"document"`
	Frequency int    `json:"frequency"`
}

func NewOccurrence(document string, frequency int) Occurrence {
	return Occurrence{Document: document, Frequency: frequency}
}

func (o Occurrence) String() string {
	return fmt.Sprintf("(%s,%d)", o.Document, o.Frequency)
}

// KeywordEntry pairs a keyword with a copy of its occurrence list.
type KeywordEntry struct {
	Keyword     string         `json:"keyword"`
	Occurrences OccurrenceList `json:"occurrences"`
}
