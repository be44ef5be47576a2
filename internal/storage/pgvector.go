// ABOUTME: PostgreSQL source store using the pgvector extension for L2 ranking in SQL.
// ABOUTME: Works against any pgx-compatible executor so tests can substitute a mock pool.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/models"
)

// DefaultPGTable is the table holding academic sources.
const DefaultPGTable = "academic_sources"

// DB is the subset of pgxpool.Pool used by PGVectorStore.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGVectorStore stores records in PostgreSQL. Vectors are held as float32 by pgvector,
// so stored and query vectors are both narrowed before comparison.
type PGVectorStore struct {
	db         DB
	closer     func()
	table      string
	tableIdent string
	dimension  int
	hnswIndex  bool
}

var _ SourceStore = (*PGVectorStore)(nil)

// PGOption configures optional PGVectorStore settings.
type PGOption func(*PGVectorStore)

// WithTable overrides the table name.
func WithTable(name string) PGOption {
	return func(s *PGVectorStore) {
		if name != "" {
			s.table = name
		}
	}
}

// WithHNSWIndex creates an HNSW index on the embedding column using L2 operators.
func WithHNSWIndex() PGOption {
	return func(s *PGVectorStore) {
		s.hnswIndex = true
	}
}

// NewPGVectorStore binds a store to db, creating the extension and table if needed.
// An existing table whose vector width differs from dimension is rejected.
func NewPGVectorStore(ctx context.Context, db DB, dimension int, opts ...PGOption) (*PGVectorStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, dimension)
	}
	s := &PGVectorStore{
		db:        db,
		table:     DefaultPGTable,
		dimension: dimension,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tableIdent = pgx.Identifier{s.table}.Sanitize()

	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// OpenPGVectorStore connects a pool to dsn and binds a store to it. Close releases the pool.
func OpenPGVectorStore(ctx context.Context, dsn string, dimension int, opts ...PGOption) (*PGVectorStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, storageErr("connect to postgres", err)
	}
	s, err := NewPGVectorStore(ctx, pool, dimension, opts...)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.closer = pool.Close
	return s, nil
}

func (s *PGVectorStore) ensureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return storageErr("enable vector extension", err)
	}

	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		authors TEXT[] NOT NULL DEFAULT '{}',
		publication_year INTEGER,
		abstract TEXT,
		full_text TEXT,
		source_type TEXT,
		embedding vector(%d),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, s.tableIdent, s.dimension)
	if _, err := s.db.Exec(ctx, createTable); err != nil {
		return storageErr("create table", err)
	}

	if s.hnswIndex {
		indexIdent := pgx.Identifier{s.table + "_embedding_idx"}.Sanitize()
		createIndex := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (embedding vector_l2_ops)",
			indexIdent, s.tableIdent)
		if _, err := s.db.Exec(ctx, createIndex); err != nil {
			return storageErr("create index", err)
		}
	}

	var width int32
	err := s.db.QueryRow(ctx,
		"SELECT atttypmod FROM pg_attribute WHERE attrelid = $1::regclass AND attname = 'embedding'",
		s.tableIdent).Scan(&width)
	if err != nil {
		return storageErr("read embedding column width", err)
	}
	if int(width) != s.dimension {
		return fmt.Errorf("table %s: %w", s.table,
			&embeddings.DimensionMismatchError{Expected: int(width), Actual: s.dimension})
	}
	return nil
}

// Dimension returns the vector width of the embedding column.
func (s *PGVectorStore) Dimension() int {
	return s.dimension
}

// Insert writes rec and sets rec.ID from the generated key.
func (s *PGVectorStore) Insert(ctx context.Context, rec *models.SourceRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", ErrInvalidArgument)
	}

	var vec any
	if rec.HasEmbedding() {
		if len(rec.Embedding) != s.dimension {
			return 0, fmt.Errorf("source %q: %w", rec.Title,
				&embeddings.DimensionMismatchError{Expected: s.dimension, Actual: len(rec.Embedding)})
		}
		vec = pgvector.NewVector(toFloat32(rec.Embedding))
	}
	var year any
	if rec.Year != nil {
		year = int32(*rec.Year)
	}

	stmt := fmt.Sprintf(`INSERT INTO %s (title, authors, publication_year, abstract, full_text, source_type, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`, s.tableIdent)

	var id int64
	err := s.db.QueryRow(ctx, stmt,
		rec.Title, models.CopyAuthors(rec.Authors), year, rec.Abstract, rec.FullText, rec.SourceType, vec,
	).Scan(&id)
	if err != nil {
		return 0, storageErr("insert source", err)
	}
	rec.ID = id
	return id, nil
}

// Get loads a single record including its full text and embedding.
func (s *PGVectorStore) Get(ctx context.Context, id int64) (*models.SourceRecord, error) {
	stmt := fmt.Sprintf(`SELECT id, title, authors, publication_year,
	COALESCE(abstract, ''), COALESCE(full_text, ''), COALESCE(source_type, ''), COALESCE(embedding::text, '')
FROM %s WHERE id = $1`, s.tableIdent)

	var (
		rec  models.SourceRecord
		year sql.NullInt32
		text string
	)
	err := s.db.QueryRow(ctx, stmt, id).Scan(
		&rec.ID, &rec.Title, &rec.Authors, &year, &rec.Abstract, &rec.FullText, &rec.SourceType, &text,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get source", err)
	}
	rec.Year = yearPtr(year)
	if rec.Authors == nil {
		rec.Authors = []string{}
	}
	if text != "" {
		var v pgvector.Vector
		if err := v.Scan([]byte(text)); err != nil {
			return nil, storageErr(fmt.Sprintf("decode embedding of source %d", id), err)
		}
		rec.Embedding = toFloat64(v.Slice())
	}
	return &rec, nil
}

// NearestNeighbors ranks rows by pgvector's L2 operator; ties fall back to ascending id.
func (s *PGVectorStore) NearestNeighbors(ctx context.Context, query []float64, k int) ([]models.QueryResult, error) {
	if k <= 0 {
		return nil, invalidK(k)
	}
	if len(query) != s.dimension {
		return nil, &embeddings.DimensionMismatchError{Expected: s.dimension, Actual: len(query)}
	}

	stmt := fmt.Sprintf(`SELECT id, title, authors, publication_year,
	COALESCE(abstract, ''), COALESCE(source_type, ''), embedding <-> $1 AS distance
FROM %s
WHERE embedding IS NOT NULL
ORDER BY distance ASC, id ASC
LIMIT $2`, s.tableIdent)

	rows, err := s.db.Query(ctx, stmt, pgvector.NewVector(toFloat32(query)), k)
	if err != nil {
		return nil, storageErr("nearest neighbor query", err)
	}
	defer rows.Close()

	results := make([]models.QueryResult, 0, k)
	for rows.Next() {
		var (
			r    models.QueryResult
			year sql.NullInt32
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Authors, &year, &r.Abstract, &r.SourceType, &r.Distance); err != nil {
			return nil, storageErr("scan result", err)
		}
		r.Year = yearPtr(year)
		if r.Authors == nil {
			r.Authors = []string{}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate results", err)
	}
	return results, nil
}

// Close releases the pool when the store opened it.
func (s *PGVectorStore) Close() error {
	if s.closer != nil {
		s.closer()
	}
	return nil
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

func toFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func yearPtr(y sql.NullInt32) *int {
	if !y.Valid {
		return nil
	}
	v := int(y.Int32)
	return &v
}
