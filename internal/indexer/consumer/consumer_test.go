package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/internal/ingestion/catalog"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

func newEngine() *indexer.Engine {
	return indexer.NewEngine(config.IndexerConfig{MaxDocumentBytes: 128}, tokenizer.New(tokenizer.DefaultNoiseWords()), nil)
}

func encodeEvent(t *testing.T, ev ingestion.IngestEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestHandleMessageIndexesAndMarksIndexed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET status = $1, indexed_at = NOW() WHERE id = $2`)).
		WithArgs(ingestion.StatusIndexed, "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	engine := newEngine()
	handle := HandleMessage(engine, catalog.New(postgres.Wrap(db)))
	err = handle(context.Background(), []byte("documents"), encodeEvent(t, ingestion.IngestEvent{
		DocumentID: "id-1",
		Name:       "AliceCh1.txt",
		Body:       "Alice saw the rabbit. Alice!",
		IngestedAt: time.Now(),
	}))
	require.NoError(t, err)

	alice, ok := engine.Index().Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, 2, alice[0].Frequency)
	assert.Equal(t, "AliceCh1.txt", alice[0].Document)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleMessageAcknowledgesPoison(t *testing.T) {
	handle := HandleMessage(newEngine(), nil)
	assert.NoError(t, handle(context.Background(), nil, []byte("{broken")))
}

func TestHandleMessageDuplicateIsAcknowledged(t *testing.T) {
	engine := newEngine()
	handle := HandleMessage(engine, nil)
	ev := encodeEvent(t, ingestion.IngestEvent{DocumentID: "id-1", Name: "a.txt", Body: "alpha"})
	require.NoError(t, handle(context.Background(), nil, ev))
	require.NoError(t, handle(context.Background(), nil, ev))

	list, _ := engine.Index().Lookup("alpha")
	assert.Len(t, list, 1)
}

func TestHandleMessageRejectedMarksFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET status = $1`)).
		WithArgs(ingestion.StatusFailed, "id-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	engine := newEngine()
	handle := HandleMessage(engine, catalog.New(postgres.Wrap(db)))
	err = handle(context.Background(), nil, encodeEvent(t, ingestion.IngestEvent{
		DocumentID: "id-9",
		Name:       "big.txt",
		Body:       strings.Repeat("word ", 100),
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, engine.DocCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleMessageOverlongWordMarksFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET status = $1`)).
		WithArgs(ingestion.StatusFailed, "id-7").
		WillReturnResult(sqlmock.NewResult(0, 1))

	engine := indexer.NewEngine(config.IndexerConfig{}, tokenizer.New(tokenizer.DefaultNoiseWords()), nil)
	handle := HandleMessage(engine, catalog.New(postgres.Wrap(db)))
	err = handle(context.Background(), nil, encodeEvent(t, ingestion.IngestEvent{
		DocumentID: "id-7",
		Name:       "long.txt",
		Body:       strings.Repeat("y", 1<<20+1),
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, engine.DocCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleMessageCancelledContextIsRetried(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	handle := HandleMessage(newEngine(), nil)
	err := handle(ctx, nil, encodeEvent(t, ingestion.IngestEvent{Name: "a.txt", Body: "alpha"}))
	assert.True(t, errors.Is(err, context.Canceled))
}

type stubRunner struct{ started bool }

func (s *stubRunner) Start(ctx context.Context) error {
	s.started = true
	<-ctx.Done()
	return nil
}

func TestIndexConsumerStart(t *testing.T) {
	r := &stubRunner{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.NoError(t, New(r).Start(ctx))
	assert.True(t, r.started)
}

type trackerFunc func(any)

func (f trackerFunc) Track(event any) { f(event) }

func TestHandleMessageTracksIndexedDocuments(t *testing.T) {
	var tracked []any
	handle := HandleMessage(newEngine(), nil, WithTracker(trackerFunc(func(ev any) {
		tracked = append(tracked, ev)
	})))

	require.NoError(t, handle(context.Background(), nil, encodeEvent(t, ingestion.IngestEvent{
		Name: "doc1.txt",
		Body: "deep deep world",
	})))
	require.NoError(t, handle(context.Background(), nil, encodeEvent(t, ingestion.IngestEvent{
		Name: "doc1.txt",
		Body: "deep deep world",
	})))

	require.Len(t, tracked, 1, "duplicates are not reported")
	ev, ok := tracked[0].(analytics.IndexEvent)
	require.True(t, ok)
	assert.Equal(t, analytics.EventIndexDoc, ev.Type)
	assert.Equal(t, "doc1.txt", ev.Document)
	assert.Equal(t, 2, ev.Keywords)
	assert.Equal(t, 3, ev.Tokens)
	assert.Equal(t, uint64(1), ev.Version)
}
