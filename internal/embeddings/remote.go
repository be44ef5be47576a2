// ABOUTME: HTTP client for an OpenAI-compatible embeddings API.
// ABOUTME: Classifies failures as provider-unavailable or provider-error; never retries.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultTimeout bounds a single remote embedding request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept in APIError.Message.
const maxErrorBody = 1 << 12

// RemoteEmbedder calls a remote embeddings endpoint once per Embed call.
type RemoteEmbedder struct {
	apiURL   string
	apiKey   string
	model    string
	dim      int
	sendDim  bool
	anyWidth bool
	client   *http.Client
	limiter  *rate.Limiter
}

var _ Embedder = (*RemoteEmbedder)(nil)

// RemoteOption configures optional RemoteEmbedder settings.
type RemoteOption func(*RemoteEmbedder)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *RemoteEmbedder) {
		if c != nil {
			r.client = c
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *RemoteEmbedder) {
		if d > 0 {
			r.client = &http.Client{Timeout: d}
		}
	}
}

// WithDimensions requests vectors of width d and rejects responses of any other width.
func WithDimensions(d int) RemoteOption {
	return func(r *RemoteEmbedder) {
		if d > 0 {
			r.dim = d
			r.sendDim = true
		}
	}
}

// WithRateLimit paces outgoing requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) RemoteOption {
	return func(r *RemoteEmbedder) {
		if rps <= 0 {
			r.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewRemoteEmbedder creates a remote embedder. Empty apiURL and model fall back to defaults;
// an empty apiKey is allowed here and reported as ErrProviderUnavailable on first use.
func NewRemoteEmbedder(apiURL, apiKey, model string, opts ...RemoteOption) *RemoteEmbedder {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if model == "" {
		model = DefaultModel
	}
	r := &RemoteEmbedder{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		model:  model,
		dim:    DefaultDimension,
		client: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HasCredential reports whether an API key is configured.
func (r *RemoteEmbedder) HasCredential() bool {
	return r.apiKey != ""
}

// Model returns the configured model identifier.
func (r *RemoteEmbedder) Model() string {
	return r.model
}

// Dimension returns the dimensionality of the output vectors.
func (r *RemoteEmbedder) Dimension() int {
	return r.dim
}

// embeddingRequest is the JSON body sent to POST /embeddings.
type embeddingRequest struct {
	Input      string `json:"input"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions,omitempty"`
}

// embeddingResponse maps the fields of the embeddings response that are used.
type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Model string `json:"model"`
}

// apiErrorEnvelope is the error body returned by OpenAI-compatible APIs.
type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Embed sends text to the remote API and returns the first embedding of the response.
func (r *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("%w: API credential not set", ErrProviderUnavailable)
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrProviderUnavailable, err)
		}
	}

	payload := embeddingRequest{Input: text, Model: r.model}
	if r.sendDim {
		payload.Dimensions = r.dim
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %w", ErrProviderError, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: remote API request failed: %w", ErrProviderUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctx.Err())
		}
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrProviderError, err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("%w: response contained no embeddings", ErrProviderError)
	}

	vec := out.Data[0].Embedding
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: response contained an empty embedding", ErrProviderError)
	}
	if !r.anyWidth && len(vec) != r.dim {
		return nil, fmt.Errorf("%w: %w", ErrProviderError, &DimensionMismatchError{Expected: r.dim, Actual: len(vec)})
	}
	return vec, nil
}

// errorMessage extracts error.message from an API error body, or returns the raw body.
func errorMessage(body []byte) string {
	var env apiErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// ValidateCredentials embeds a short probe text to confirm the URL, key, and model work together.
// The width of the returned vector is not checked.
func ValidateCredentials(ctx context.Context, apiURL, apiKey, model string) error {
	r := NewRemoteEmbedder(apiURL, apiKey, model, WithTimeout(10*time.Second))
	r.anyWidth = true
	_, err := r.Embed(ctx, "connection check")
	return err
}
