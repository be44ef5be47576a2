// ABOUTME: Interface definition for academic source storage.
// ABOUTME: Defines the contract for inserting records and querying nearest neighbors by L2 distance.
package storage

import (
	"context"

	"github.com/2389-research/scholar/internal/models"
)

// SourceStore defines operations for source record persistence and vector retrieval.
type SourceStore interface {
	// Insert stores a copy of rec under a newly assigned unique ID, sets rec.ID, and returns it.
	// Safe for concurrent use; no two inserts receive the same ID.
	Insert(ctx context.Context, rec *models.SourceRecord) (int64, error)

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id int64) (*models.SourceRecord, error)

	// NearestNeighbors returns up to k embedded records closest to query, ascending by
	// distance with ties broken by ascending ID. Records without an embedding are skipped.
	NearestNeighbors(ctx context.Context, query []float64, k int) ([]models.QueryResult, error)

	// Close releases any resources held by the store.
	Close() error
}
