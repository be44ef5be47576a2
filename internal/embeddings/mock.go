// ABOUTME: Deterministic offline embedder seeded from a SHA-256 digest of the input text.
// ABOUTME: Used when the provider is set to mock and as the gateway's fallback path.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand/v2"
)

// MockEmbedder derives a reproducible vector from the text alone.
// It performs no I/O, keeps no state, and never fails.
type MockEmbedder struct {
	dim int
}

var _ Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder producing vectors of the given width.
// A non-positive width falls back to DefaultDimension.
func NewMockEmbedder(dim int) *MockEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &MockEmbedder{dim: dim}
}

// Embed returns dim values drawn uniformly from [-1, 1) by a generator seeded
// with the first 8 bytes (big-endian) of sha256(text).
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	return m.vector(text), nil
}

// Dimension returns the dimensionality of the output vectors.
func (m *MockEmbedder) Dimension() int {
	return m.dim
}

func (m *MockEmbedder) vector(text string) []float64 {
	digest := sha256.Sum256([]byte(text))
	seed := binary.BigEndian.Uint64(digest[:8])
	rng := rand.New(rand.NewPCG(seed, seed))

	vec := make([]float64, m.dim)
	for i := range vec {
		vec[i] = rng.Float64()*2 - 1
	}
	return vec
}
