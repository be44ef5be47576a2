// ABOUTME: SQLite-backed source store using the pure-Go modernc driver.
// ABOUTME: Vectors live in a BLOB column and are ranked in process on each query.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389-research/scholar/internal/models"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	authors TEXT NOT NULL DEFAULT '[]',
	publication_year INTEGER,
	abstract TEXT NOT NULL DEFAULT '',
	full_text TEXT NOT NULL DEFAULT '',
	source_type TEXT NOT NULL DEFAULT '',
	embedding BLOB,
	dimensions INTEGER,
	created_at TEXT NOT NULL
)`

// SQLiteStore persists records in a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ SourceStore = (*SQLiteStore)(nil)

// OpenSQLiteStore opens or creates the database at path and applies the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, storageErr("create data directory", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageErr("open database", err)
	}
	// One connection serializes writers, so AUTOINCREMENT ids never race.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, path: path}
	if err := s.applyPragmas(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, storageErr("create schema", err)
	}
	return s, nil
}

func (s *SQLiteStore) applyPragmas(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return storageErr(fmt.Sprintf("apply %q", p), err)
		}
	}
	return nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Insert writes rec and sets rec.ID from the row id SQLite assigned.
func (s *SQLiteStore) Insert(ctx context.Context, rec *models.SourceRecord) (int64, error) {
	if rec == nil {
		return 0, fmt.Errorf("%w: nil record", ErrInvalidArgument)
	}

	authors, err := json.Marshal(models.CopyAuthors(rec.Authors))
	if err != nil {
		return 0, storageErr("encode authors", err)
	}

	var blob, dims any
	if rec.HasEmbedding() {
		blob = encodeVector(rec.Embedding)
		dims = len(rec.Embedding)
	}
	var year any
	if rec.Year != nil {
		year = *rec.Year
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sources (title, authors, publication_year, abstract, full_text, source_type, embedding, dimensions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, string(authors), year, rec.Abstract, rec.FullText, rec.SourceType,
		blob, dims, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, storageErr("insert source", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read inserted id", err)
	}
	rec.ID = id
	return id, nil
}

// Get loads a single record including its full text and embedding.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.SourceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, authors, publication_year, abstract, full_text, source_type, embedding
		 FROM sources WHERE id = ?`, id)

	var (
		rec     models.SourceRecord
		authors string
		year    sql.NullInt64
		blob    []byte
	)
	err := row.Scan(&rec.ID, &rec.Title, &authors, &year, &rec.Abstract, &rec.FullText, &rec.SourceType, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr("get source", err)
	}
	if err := fillRecord(&rec, authors, year, blob); err != nil {
		return nil, err
	}
	return &rec, nil
}

// NearestNeighbors reads every embedded row in one statement and ranks them in process.
func (s *SQLiteStore) NearestNeighbors(ctx context.Context, query []float64, k int) ([]models.QueryResult, error) {
	if k <= 0 {
		return nil, invalidK(k)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, authors, publication_year, abstract, source_type, embedding
		 FROM sources WHERE embedding IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, storageErr("query sources", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*models.SourceRecord
	for rows.Next() {
		var (
			rec     models.SourceRecord
			authors string
			year    sql.NullInt64
			blob    []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &authors, &year, &rec.Abstract, &rec.SourceType, &blob); err != nil {
			return nil, storageErr("scan source", err)
		}
		if err := fillRecord(&rec, authors, year, blob); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate sources", err)
	}

	return rankNearest(records, query, k)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func fillRecord(rec *models.SourceRecord, authors string, year sql.NullInt64, blob []byte) error {
	if err := json.Unmarshal([]byte(authors), &rec.Authors); err != nil {
		return storageErr(fmt.Sprintf("decode authors of source %d", rec.ID), err)
	}
	if rec.Authors == nil {
		rec.Authors = []string{}
	}
	if year.Valid {
		y := int(year.Int64)
		rec.Year = &y
	}
	if blob != nil {
		vec, err := decodeVector(blob)
		if err != nil {
			return storageErr(fmt.Sprintf("decode embedding of source %d", rec.ID), err)
		}
		rec.Embedding = vec
	}
	return nil
}
