// Package loader builds a keyword index from a corpus on disk: a list of
// document paths, one per line, and a file of noise words.
package loader

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
)

// Report summarizes a Build.
type Report struct {
	Documents int
	Keywords  int
	Tokens    int
	Duration  time.Duration
}

// LoadNoiseWords reads the noise-word file at path. An empty path yields the
// built-in default set.
func LoadNoiseWords(path string) (tokenizer.NoiseWords, error) {
	if path == "" {
		return tokenizer.DefaultNoiseWords(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening noise words %s: %w", path, err)
	}
	defer f.Close()
	return tokenizer.LoadNoiseWords(f)
}

// ReadDocumentList returns the document names listed in path, skipping blank
// lines.
func ReadDocumentList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening document list %s: %w", path, err)
	}
	defer f.Close()

	var docs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		docs = append(docs, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document list %s: %w", path, err)
	}
	return docs, nil
}

// Build reads every document named in docsFile and merges it into engine.
// Up to concurrency files are read and tokenized at once; merges always
// happen in list order.
func Build(ctx context.Context, engine *indexer.Engine, docsFile string, concurrency int) (Report, error) {
	logger := slog.Default().With("component", "loader")
	start := time.Now()

	names, err := ReadDocumentList(docsFile)
	if err != nil {
		return Report{}, err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	base := filepath.Dir(docsFile)
	tok := engine.Tokenizer()

	// ready[i] is closed once tokens[i] holds document i's keywords.
	tokens := make([][]tokenizer.Token, len(names))
	ready := make([]chan struct{}, len(names))
	for i := range ready {
		ready[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		readers, rctx := errgroup.WithContext(gctx)
		readers.SetLimit(concurrency)
		for i, name := range names {
			readers.Go(func() error {
				toks, err := readDocument(resolve(base, name), tok)
				if err != nil {
					return fmt.Errorf("document %s: %w", name, err)
				}
				tokens[i] = toks
				close(ready[i])
				return nil
			})
			if rctx.Err() != nil {
				break
			}
		}
		return readers.Wait()
	})

	var report Report
	g.Go(func() error {
		for i, name := range names {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ready[i]:
			}
			sum, err := engine.MergeKeywords(gctx, name, indexer.CountKeywords(name, tokens[i]))
			if err != nil {
				return fmt.Errorf("merging %s: %w", name, err)
			}
			tokens[i] = nil
			report.Documents++
			report.Tokens += sum.Tokens
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return report, err
	}
	report.Keywords = engine.Index().Len()
	report.Duration = time.Since(start)
	logger.Info("corpus loaded",
		"docs_file", docsFile,
		"documents", report.Documents,
		"keywords", report.Keywords,
		"tokens", report.Tokens,
		"duration", report.Duration,
	)
	return report, nil
}

func readDocument(path string, tok *tokenizer.Tokenizer) ([]tokenizer.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tok.Scan(f)
}

func resolve(base, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(base, name)
}
