// Package tokenizer turns raw document text into index keywords. A word
// becomes a keyword when, after lower-casing and stripping trailing
// punctuation, it consists only of letters a-z and is not a noise word.
package tokenizer

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// punctuation lists the only characters stripped from the end of a word.
const punctuation = ".,?:;!"

// NoiseWords is the set of words never indexed.
type NoiseWords map[string]struct{}

// Token represents a single keyword and its position among the keywords
// of the text it came from.
type Token struct {
	Term     string
	Position int
}

// LoadNoiseWords reads whitespace-separated noise words from r.
func LoadNoiseWords(r io.Reader) (NoiseWords, error) {
	noise := make(NoiseWords)
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		noise[strings.ToLower(scanner.Text())] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading noise words: %w", err)
	}
	return noise, nil
}

// DefaultNoiseWords returns a small English noise-word set used when no
// noise-word file is configured.
func DefaultNoiseWords() NoiseWords {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"from", "had", "has", "have", "he", "her", "his", "i", "if", "in",
		"into", "is", "it", "its", "me", "my", "no", "not", "of", "on",
		"or", "our", "she", "so", "that", "the", "their", "them", "then",
		"there", "they", "this", "to", "was", "we", "were", "what", "when",
		"where", "which", "who", "will", "with", "you", "your",
	}
	noise := make(NoiseWords, len(words))
	for _, w := range words {
		noise[w] = struct{}{}
	}
	return noise
}

func (n NoiseWords) Contains(word string) bool {
	_, ok := n[word]
	return ok
}

type Tokenizer struct {
	noise NoiseWords
}

// New creates a Tokenizer. A nil noise set means nothing is filtered.
func New(noise NoiseWords) *Tokenizer {
	if noise == nil {
		noise = make(NoiseWords)
	}
	return &Tokenizer{noise: noise}
}

// Keyword normalizes word and reports whether it is indexable.
func (t *Tokenizer) Keyword(word string) (string, bool) {
	word = strings.TrimRight(strings.ToLower(word), punctuation)
	if word == "" {
		return "", false
	}
	for i := 0; i < len(word); i++ {
		if word[i] < 'a' || word[i] > 'z' {
			return "", false
		}
	}
	if t.noise.Contains(word) {
		return "", false
	}
	return word, true
}

// Tokenize splits text on whitespace and returns its keywords in order.
func (t *Tokenizer) Tokenize(text string) []Token {
	tokens, _ := t.Scan(strings.NewReader(text))
	return tokens
}

// Scan reads whitespace-separated words from r and returns its keywords.
func (t *Tokenizer) Scan(r io.Reader) ([]Token, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)
	tokens := make([]Token, 0, 64)
	pos := 0
	for scanner.Scan() {
		term, ok := t.Keyword(scanner.Text())
		if !ok {
			continue
		}
		tokens = append(tokens, Token{
			Term:     term,
			Position: pos,
		})
		pos++
	}
	if err := scanner.Err(); err != nil {
		return tokens, fmt.Errorf("scanning words: %w", err)
	}
	return tokens, nil
}
