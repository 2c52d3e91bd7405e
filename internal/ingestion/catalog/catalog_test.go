package catalog

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/keyword-search/pkg/postgres"
)

func newStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(postgres.Wrap(db)), mock
}

var entry = Entry{Name: "doc1.txt", ContentHash: "abc", ContentSize: 12, IdempotencyKey: "k1"}

func TestInsert(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM documents WHERE name = $1`)).
		WithArgs("doc1.txt").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO documents`)).
		WithArgs("doc1.txt", "abc", 12, sql.NullString{String: "k1", Valid: true}).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-1"))
	mock.ExpectCommit()

	id, err := s.Insert(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertExistingName(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM documents WHERE name = $1`)).
		WithArgs("doc1.txt").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("id-0"))
	mock.ExpectRollback()

	_, err := s.Insert(context.Background(), entry)
	assert.True(t, errors.Is(err, apperrors.ErrDocumentExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertIdempotencyConflict(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM documents WHERE name = $1`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO documents`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.Insert(context.Background(), entry)
	assert.True(t, errors.Is(err, apperrors.ErrIdempotencyConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUniqueViolationRace(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM documents WHERE name = $1`)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO documents`)).
		WillReturnError(&pq.Error{Code: uniqueViolation})
	mock.ExpectRollback()

	_, err := s.Insert(context.Background(), entry)
	assert.True(t, errors.Is(err, apperrors.ErrDocumentExists))
}

func TestFindByIdempotencyKey(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, status FROM documents WHERE idempotency_key = $1`)).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "status"}).AddRow("id-1", "doc1.txt", "INDEXED"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, status FROM documents WHERE idempotency_key = $1`)).
		WithArgs("k2").
		WillReturnError(sql.ErrNoRows)

	got, err := s.FindByIdempotencyKey(context.Background(), "k1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "doc1.txt", got.Name)
	assert.Equal(t, "INDEXED", got.Status)

	got, err = s.FindByIdempotencyKey(context.Background(), "k2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateStatus(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents SET status = $1, indexed_at = NOW() WHERE id = $2`)).
		WithArgs("INDEXED", "id-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE documents`)).
		WillReturnError(errors.New("connection reset"))

	require.NoError(t, s.UpdateStatus(context.Background(), "id-1", "INDEXED"))
	assert.Error(t, s.UpdateStatus(context.Background(), "id-2", "FAILED"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	s, mock := newStore(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS documents`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
