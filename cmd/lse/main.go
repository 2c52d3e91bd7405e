// Command lse builds a keyword index from a list of documents and answers
// two-keyword queries against it.
//
// Usage:
//
//	go run ./cmd/lse -docs docs.txt -noise noisewords.txt -q "deep or world"
//	go run ./cmd/lse -docs docs.txt -interactive
//	go run ./cmd/lse -docs docs.txt -dump
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/loader"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/searcher/topk"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/logger"
)

const quitCommand = "quit"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "lse: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	docsFile    string
	noiseFile   string
	query       string
	dump        bool
	interactive bool
	logLevel    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lse", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "optional config file")
	fs.StringVar(&opts.docsFile, "docs", "", "file listing one document path per line")
	fs.StringVar(&opts.noiseFile, "noise", "", "noise word file (built-in list when empty)")
	fs.StringVar(&opts.query, "q", "", `query, e.g. "deep or world"`)
	fs.BoolVar(&opts.dump, "dump", false, "print every keyword and its occurrences")
	fs.BoolVar(&opts.interactive, "interactive", false, "read queries from stdin until "+quitCommand)
	fs.StringVar(&opts.logLevel, "log-level", "", "override logging level")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.docsFile != "" {
		cfg.Corpus.DocsFile = opts.docsFile
	}
	if opts.noiseFile != "" {
		cfg.Corpus.NoiseWordsFile = opts.noiseFile
	}
	level := cfg.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger.SetupWriter(stderr, level, "text")

	if cfg.Corpus.DocsFile == "" {
		return errors.New("-docs is required")
	}

	noise, err := loader.LoadNoiseWords(cfg.Corpus.NoiseWordsFile)
	if err != nil {
		return err
	}
	engine := indexer.NewEngine(cfg.Indexer, tokenizer.New(noise), nil)
	report, err := loader.Build(ctx, engine, cfg.Corpus.DocsFile, cfg.Corpus.ReadConcurrency)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "indexed %d documents, %d keywords\n", report.Documents, report.Keywords)

	if opts.dump {
		if err := dump(stdout, engine); err != nil {
			return err
		}
	}

	searcher := topk.NewEngine(engine.Index())
	if opts.query != "" {
		if err := answer(stdout, searcher, engine.Tokenizer(), opts.query); err != nil {
			return err
		}
	}
	if opts.interactive {
		return repl(ctx, stdin, stdout, searcher, engine.Tokenizer())
	}
	return nil
}

func repl(ctx context.Context, stdin io.Reader, stdout io.Writer, searcher *topk.Engine, tok *tokenizer.Tokenizer) error {
	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "query> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.EqualFold(line, quitCommand):
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := answer(stdout, searcher, tok, line); err != nil {
			fmt.Fprintf(stdout, "error: %v\n", err)
		}
	}
}

// answer prints the ranked documents for one query.
func answer(w io.Writer, searcher *topk.Engine, tok *tokenizer.Tokenizer, raw string) error {
	q, err := parser.Parse(raw, tok)
	if err != nil {
		return err
	}
	result := searcher.Search(q.Keywords[0], q.Keywords[1])
	if len(result.Hits) == 0 {
		fmt.Fprintf(w, "no documents match %q\n", raw)
		return nil
	}
	for i, hit := range result.Hits {
		fmt.Fprintf(w, "%d. %s (%s: %d)\n", i+1, hit.Document, hit.Keyword, hit.Frequency)
	}
	return nil
}

func dump(w io.Writer, engine *indexer.Engine) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, entry := range engine.Index().Snapshot() {
		parts := make([]string, len(entry.Occurrences))
		for i, occ := range entry.Occurrences {
			parts[i] = fmt.Sprintf("(%s,%d)", occ.Document, occ.Frequency)
		}
		fmt.Fprintf(tw, "%s\t%s\n", entry.Keyword, strings.Join(parts, " "))
	}
	return tw.Flush()
}
