// ABOUTME: Brute-force nearest-neighbor ranking shared by the in-process stores.
// ABOUTME: Orders by L2 distance, then by ID, so equal distances rank deterministically.
package storage

import (
	"fmt"
	"sort"

	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/models"
)

type scoredRecord struct {
	rec      *models.SourceRecord
	distance float64
}

// rankNearest scores every embedded record against query and keeps the k closest.
// Any embedded record of a different width fails the whole query.
func rankNearest(records []*models.SourceRecord, query []float64, k int) ([]models.QueryResult, error) {
	if k <= 0 {
		return nil, invalidK(k)
	}

	scored := make([]scoredRecord, 0, len(records))
	for _, rec := range records {
		if !rec.HasEmbedding() {
			continue
		}
		d, err := embeddings.L2Distance(rec.Embedding, query)
		if err != nil {
			return nil, fmt.Errorf("source %d: %w", rec.ID, err)
		}
		scored = append(scored, scoredRecord{rec: rec, distance: d})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].distance != scored[j].distance {
			return scored[i].distance < scored[j].distance
		}
		return scored[i].rec.ID < scored[j].rec.ID
	})

	if k > len(scored) {
		k = len(scored)
	}
	results := make([]models.QueryResult, 0, k)
	for _, s := range scored[:k] {
		results = append(results, s.rec.Result(s.distance))
	}
	return results, nil
}
