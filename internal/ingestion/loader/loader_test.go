package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newEngine(t *testing.T, noise tokenizer.NoiseWords) *indexer.Engine {
	t.Helper()
	return indexer.NewEngine(config.IndexerConfig{MaxDocumentBytes: 1 << 20}, tokenizer.New(noise), nil)
}

func TestLoadNoiseWords(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "noisewords.txt", "the\nOf\n\nand\n")

	noise, err := LoadNoiseWords(path)
	require.NoError(t, err)
	assert.True(t, noise.Contains("the"))
	assert.True(t, noise.Contains("of"))
	assert.True(t, noise.Contains("and"))
	assert.Len(t, noise, 3)

	defaults, err := LoadNoiseWords("")
	require.NoError(t, err)
	assert.True(t, defaults.Contains("the"))

	_, err = LoadNoiseWords(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestReadDocumentList(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "docs.txt", "a.txt\n\n  b.txt  \nsub/c.txt\n")
	docs, err := ReadDocumentList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "sub/c.txt"}, docs)
}

func TestBuildMergesInListOrder(t *testing.T) {
	dir := t.TempDir()
	// every document has "shared" once, so list order decides the ranking
	var list strings.Builder
	var want []string
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("doc%02d.txt", i)
		writeFile(t, dir, name, strings.Repeat("filler ", i%7)+"shared")
		list.WriteString(name + "\n")
		want = append(want, name)
	}
	docsFile := writeFile(t, dir, "docs.txt", list.String())

	e := newEngine(t, nil)
	report, err := Build(context.Background(), e, docsFile, 8)
	require.NoError(t, err)

	assert.Equal(t, 40, report.Documents)
	assert.Equal(t, 2, report.Keywords)
	assert.Equal(t, want, e.Documents())

	shared, ok := e.Index().Lookup("shared")
	require.True(t, ok)
	assert.Equal(t, want, shared.Documents())

	filler, ok := e.Index().Lookup("filler")
	require.True(t, ok)
	assert.True(t, filler.IsSorted())
}

func TestBuildLittleCorpus(t *testing.T) {
	dir := t.TempDir()
	noisePath := writeFile(t, dir, "noisewords.txt", "the of a")
	writeFile(t, dir, "AliceCh1.txt", "Alice was beginning to get very tired. Alice, Alice! the rabbit")
	writeFile(t, dir, "WowCh1.txt", "rabbit rabbit rabbit. Alice")
	docsFile := writeFile(t, dir, "docs.txt", "AliceCh1.txt\nWowCh1.txt\n")

	noise, err := LoadNoiseWords(noisePath)
	require.NoError(t, err)
	e := newEngine(t, noise)
	_, err = Build(context.Background(), e, docsFile, 2)
	require.NoError(t, err)

	alice, _ := e.Index().Lookup("alice")
	assert.Equal(t, []string{"AliceCh1.txt", "WowCh1.txt"}, alice.Documents())
	rabbit, _ := e.Index().Lookup("rabbit")
	assert.Equal(t, []string{"WowCh1.txt", "AliceCh1.txt"}, rabbit.Documents())
	_, ok := e.Index().Lookup("the")
	assert.False(t, ok)
}

func TestBuildMissingDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	docsFile := writeFile(t, dir, "docs.txt", "a.txt\nmissing.txt\n")

	e := newEngine(t, nil)
	_, err := Build(context.Background(), e, docsFile, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
}

func TestBuildDuplicateNameFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	docsFile := writeFile(t, dir, "docs.txt", "a.txt\na.txt\n")

	e := newEngine(t, nil)
	_, err := Build(context.Background(), e, docsFile, 2)
	require.Error(t, err)
	assert.True(t, indexer.IsDuplicate(err))
	assert.Equal(t, 1, e.DocCount())
}

func TestBuildCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "alpha")
	docsFile := writeFile(t, dir, "docs.txt", "a.txt\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, newEngine(t, nil), docsFile, 1)
	assert.Error(t, err)
}
