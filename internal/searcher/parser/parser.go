// Package parser turns a query string into the two keywords a top-k search
// runs on.
package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
)

// operator is the only connective a query may use.
const operator = "OR"

// Query is a parsed two-keyword query. A keyword that is not indexable
// (noise word, digits, inner punctuation) is empty and matches nothing.
type Query struct {
	Terms    []string
	Keywords [2]string
	RawQuery string
}

// Empty reports whether neither keyword can match anything.
func (q *Query) Empty() bool {
	return q.Keywords[0] == "" && q.Keywords[1] == ""
}

// Parse accepts "kw1 OR kw2", "kw1 kw2" or a single keyword. The operator is
// matched case-insensitively between two terms.
func Parse(query string, tok *tokenizer.Tokenizer) (*Query, error) {
	words := strings.Fields(query)
	var terms []string
	switch {
	case len(words) == 0:
		return nil, apperrors.Invalid("query is empty")
	case len(words) == 3 && strings.EqualFold(words[1], operator):
		terms = []string{words[0], words[2]}
	case len(words) <= 2:
		for _, w := range words {
			if w == operator {
				return nil, apperrors.Invalid("operator %s needs a keyword on each side", operator)
			}
		}
		terms = words
	default:
		return nil, apperrors.Invalid("query takes at most two keywords, got %q", query)
	}
	return build(query, terms, tok), nil
}

// FromKeywords builds a Query from two separately supplied terms, either of
// which may be empty but not both.
func FromKeywords(kw1, kw2 string, tok *tokenizer.Tokenizer) (*Query, error) {
	kw1, kw2 = strings.TrimSpace(kw1), strings.TrimSpace(kw2)
	if kw1 == "" && kw2 == "" {
		return nil, apperrors.Invalid("at least one keyword is required")
	}
	if strings.ContainsAny(kw1, " \t\n") || strings.ContainsAny(kw2, " \t\n") {
		return nil, apperrors.Invalid("each keyword must be a single word")
	}
	raw := strings.TrimSpace(kw1 + " " + operator + " " + kw2)
	return build(raw, []string{kw1, kw2}, tok), nil
}

func build(raw string, terms []string, tok *tokenizer.Tokenizer) *Query {
	q := &Query{
		Terms:    terms,
		RawQuery: raw,
	}
	for i, term := range terms {
		if kw, ok := tok.Keyword(term); ok {
			q.Keywords[i] = kw
		}
	}
	return q
}
