// ABOUTME: Credential validation for the embeddings API entered in the setup wizard.
// ABOUTME: Requests one probe embedding and turns classified failures into readable messages.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389-research/scholar/internal/embeddings"
)

// ValidateConnection checks the URL, key, and model by requesting a single embedding.
// The context allows cancellation when the user quits during validation.
func ValidateConnection(ctx context.Context, apiURL, apiKey, model string) error {
	err := embeddings.ValidateCredentials(ctx, apiURL, apiKey, model)
	if err == nil {
		return nil
	}

	var apiErr *embeddings.APIError
	switch {
	case errors.As(err, &apiErr):
		return fmt.Errorf("API returned %d: %s", apiErr.StatusCode, apiErr.Message)
	case errors.Is(err, embeddings.ErrProviderUnavailable):
		return fmt.Errorf("connection failed: %w", err)
	default:
		return fmt.Errorf("unexpected response: %w", err)
	}
}
