// ABOUTME: Error taxonomy for embedding providers and vector comparison.
// ABOUTME: Sentinels are matched with errors.Is; typed errors carry details for errors.As.
package embeddings

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderUnavailable means no credential is configured or the provider could not be reached.
	ErrProviderUnavailable = errors.New("embedding provider unavailable")

	// ErrProviderError means the provider answered but reported a failure or returned a bad payload.
	ErrProviderError = errors.New("embedding provider error")

	// ErrDimensionMismatch means two vectors of different length were compared.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// APIError is a non-2xx response from the remote embeddings API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrProviderError) match API errors.
func (e *APIError) Is(target error) bool {
	return target == ErrProviderError
}

// DimensionMismatchError reports the expected and actual vector lengths.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is lets errors.Is(err, ErrDimensionMismatch) match typed mismatches.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// classify maps any provider failure onto the two provider sentinels.
// Errors that are already classified pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, ErrProviderError) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProviderError, err)
}
