// ABOUTME: Embedder interface shared by the mock, remote, and gateway implementations.
// ABOUTME: Defines the provider kinds and per-deployment defaults for embedding vectors.
package embeddings

import "context"

// DefaultDimension is the vector width used when none is configured.
const DefaultDimension = 1536

// DefaultModel is the remote embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// DefaultAPIURL is the base URL of the OpenAI-compatible embeddings API.
const DefaultAPIURL = "https://api.openai.com/v1"

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// Dimension returns the dimensionality of the output vectors.
	Dimension() int
}

// ProviderKind selects which embedder the gateway uses.
type ProviderKind string

const (
	ProviderMock   ProviderKind = "mock"
	ProviderRemote ProviderKind = "remote"
)

// ParseProviderKind maps a configuration value onto a provider kind.
// "openai" is accepted as a legacy spelling of remote.
func ParseProviderKind(s string) (ProviderKind, bool) {
	switch s {
	case "mock":
		return ProviderMock, true
	case "remote", "openai", "":
		return ProviderRemote, true
	default:
		return "", false
	}
}
