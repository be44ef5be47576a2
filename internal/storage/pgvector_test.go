// ABOUTME: Tests for the pgvector store against a pgxmock pool.
// ABOUTME: Verifies schema setup, SQL arguments, row mapping, and error classification.
package storage

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/models"
)

func expectSchema(mock pgxmock.PgxPoolIface, width int32) {
	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "academic_sources"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT atttypmod FROM pg_attribute").
		WithArgs(`"academic_sources"`).
		WillReturnRows(pgxmock.NewRows([]string{"atttypmod"}).AddRow(width))
}

func newMockPGStore(t *testing.T, dim int) (pgxmock.PgxPoolIface, *PGVectorStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	expectSchema(mock, int32(dim))
	store, err := NewPGVectorStore(context.Background(), mock, dim)
	require.NoError(t, err)
	return mock, store
}

func TestPGVectorStoreSchemaSetup(t *testing.T) {
	mock, store := newMockPGStore(t, 3)
	assert.Equal(t, 3, store.Dimension())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorStoreHNSWIndex(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS vector").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "papers"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE INDEX IF NOT EXISTS "papers_embedding_idx" ON "papers" USING hnsw (embedding vector_l2_ops)`)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery("SELECT atttypmod").
		WithArgs(`"papers"`).
		WillReturnRows(pgxmock.NewRows([]string{"atttypmod"}).AddRow(int32(4)))

	_, err = NewPGVectorStore(context.Background(), mock, 4, WithTable("papers"), WithHNSWIndex())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorStoreRejectsExistingTableOfOtherWidth(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectSchema(mock, 1536)
	_, err = NewPGVectorStore(context.Background(), mock, 3)
	require.Error(t, err)
	assert.True(t, errors.Is(err, embeddings.ErrDimensionMismatch))
}

func TestPGVectorStoreRejectsNonPositiveDimension(t *testing.T) {
	_, err := NewPGVectorStore(context.Background(), nil, 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestPGVectorStoreSchemaFailureIsStorageError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("permission denied"))
	_, err = NewPGVectorStore(context.Background(), mock, 3)
	assert.True(t, errors.Is(err, ErrStorage))
}

func TestPGVectorStoreInsert(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	year := 2020
	rec := models.NewSourceRecord(models.Document{
		Title:    "Dense Passage Retrieval",
		Authors:  []string{"Karpukhin"},
		Year:     &year,
		Abstract: "abs",
		Type:     "paper",
	})
	rec.Embedding = []float64{0.1, 0.2, 0.3}

	mock.ExpectQuery(`INSERT INTO "academic_sources"`).
		WithArgs("Dense Passage Retrieval", []string{"Karpukhin"}, int32(2020), "abs", "", "paper", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := store.Insert(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, int64(7), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorStoreInsertWithoutEmbedding(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	rec := models.NewSourceRecord(models.Document{Title: "Unembedded"})
	mock.ExpectQuery(`INSERT INTO "academic_sources"`).
		WithArgs("Unembedded", []string{}, nil, "", "", "", nil).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := store.Insert(context.Background(), rec)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorStoreInsertWrongWidth(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	rec := models.NewSourceRecord(models.Document{Title: "short"})
	rec.Embedding = []float64{1, 2}

	_, err := store.Insert(context.Background(), rec)
	assert.True(t, errors.Is(err, embeddings.ErrDimensionMismatch))
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement should run")
}

func TestPGVectorStoreInsertFailureIsStorageError(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	mock.ExpectQuery(`INSERT INTO "academic_sources"`).WillReturnError(errors.New("connection reset"))

	_, err := store.Insert(context.Background(), models.NewSourceRecord(models.Document{Title: "x"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))

	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "insert source", se.Op)
}

func TestPGVectorStoreNearestNeighbors(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	cols := []string{"id", "title", "authors", "publication_year", "abstract", "source_type", "distance"}
	mock.ExpectQuery(regexp.QuoteMeta("embedding <-> $1 AS distance")).
		WithArgs(pgxmock.AnyArg(), 2).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(4), "near", []string{"A", "B"}, int32(2019), "abs", "paper", 0.5).
			AddRow(int64(2), "far", []string{}, nil, "", "", 1.25))

	results, err := store.NearestNeighbors(context.Background(), []float64{0, 0, 1}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, int64(4), results[0].ID)
	assert.Equal(t, []string{"A", "B"}, results[0].Authors)
	require.NotNil(t, results[0].Year)
	assert.Equal(t, 2019, *results[0].Year)
	assert.Equal(t, 0.5, results[0].Distance)

	assert.Equal(t, int64(2), results[1].ID)
	assert.Nil(t, results[1].Year)
	assert.NotNil(t, results[1].Authors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGVectorStoreNearestNeighborsValidation(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	_, err := store.NearestNeighbors(context.Background(), []float64{1, 2, 3}, 0)
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = store.NearestNeighbors(context.Background(), []float64{1, 2}, 5)
	assert.True(t, errors.Is(err, embeddings.ErrDimensionMismatch))

	assert.NoError(t, mock.ExpectationsWereMet(), "validation failures should not reach the database")
}

func TestPGVectorStoreQueryFailureIsStorageError(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	mock.ExpectQuery(regexp.QuoteMeta("embedding <-> $1")).WillReturnError(errors.New("server closed"))

	_, err := store.NearestNeighbors(context.Background(), []float64{1, 2, 3}, 5)
	assert.True(t, errors.Is(err, ErrStorage))
}

func TestPGVectorStoreGet(t *testing.T) {
	mock, store := newMockPGStore(t, 3)

	cols := []string{"id", "title", "authors", "publication_year", "abstract", "full_text", "source_type", "embedding"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(int64(7), "T", []string{"A"}, nil, "abs", "full", "paper", "[1,2,3]"))

	rec, err := store.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "full", rec.FullText)
	assert.Nil(t, rec.Year)
	assert.Equal(t, []float64{1, 2, 3}, rec.Embedding)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)
	_, err = store.Get(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenFactory(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Driver: DriverSQLite, Path: t.TempDir() + "/scholar.db"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: DriverSQLite})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Open(ctx, Options{Driver: DriverPostgres})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = Open(ctx, Options{Driver: "cassandra"})
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
