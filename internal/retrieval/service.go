// ABOUTME: Semantic search over stored academic sources.
// ABOUTME: Embeds the query text, then asks the store for its nearest neighbors.
package retrieval

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/2389-research/scholar/internal/embeddings"
	"github.com/2389-research/scholar/internal/logging"
	"github.com/2389-research/scholar/internal/models"
	"github.com/2389-research/scholar/internal/storage"
)

// DefaultK is the number of results returned when the caller does not ask for a count.
const DefaultK = 5

// ErrRetrievalUnavailable means the query could not be embedded.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

// Service answers text queries with ranked sources.
type Service struct {
	embedder embeddings.Embedder
	store    storage.SourceStore
	defaultK int
	logger   *log.Logger
}

// Option configures optional Service settings.
type Option func(*Service)

// WithDefaultK sets the result count used when Search is called with k == 0.
func WithDefaultK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.logger = logging.OrDiscard(l)
	}
}

// NewService creates a retrieval service.
func NewService(embedder embeddings.Embedder, store storage.SourceStore, opts ...Option) *Service {
	s := &Service{
		embedder: embedder,
		store:    store,
		defaultK: DefaultK,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultK returns the result count used for k == 0.
func (s *Service) DefaultK() int {
	return s.defaultK
}

// Search embeds query and returns up to k sources ordered by ascending distance.
// k == 0 uses the default; a negative k is rejected by the store.
// A failure to embed the query is returned, never an empty result.
func (s *Service) Search(ctx context.Context, query string, k int) ([]models.QueryResult, error) {
	if k == 0 {
		k = s.defaultK
	}
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", storage.ErrInvalidArgument, k)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("query embedding failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrRetrievalUnavailable, err)
	}

	results, err := s.store.NearestNeighbors(ctx, vec, k)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search complete", "k", k, "results", len(results))
	return results, nil
}
