// ABOUTME: Tests for the remote embeddings client using httptest servers.
// ABOUTME: Covers request shape, auth header, and classification of every failure mode.
package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddingServer(t *testing.T, vec []float64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data":  []map[string]any{{"index": 0, "embedding": vec}},
			"model": "test-model",
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRemoteEmbedderSuccess(t *testing.T) {
	var receivedAuth, receivedPath, receivedMethod string
	var received embeddingRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedAuth = r.Header.Get("Authorization")
		receivedPath = r.URL.Path
		receivedMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"index": 0, "embedding": []float64{0.1, 0.2, 0.3}},
				{"index": 1, "embedding": []float64{9, 9, 9}},
			},
		})
	}))
	defer server.Close()

	r := NewRemoteEmbedder(server.URL+"/v1/", "sk-test", "test-model", WithDimensions(3))
	vec, err := r.Embed(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "Bearer sk-test", receivedAuth)
	assert.Equal(t, "/v1/embeddings", receivedPath)
	assert.Equal(t, http.MethodPost, receivedMethod)
	assert.Equal(t, "hello world", received.Input)
	assert.Equal(t, "test-model", received.Model)
	assert.Equal(t, 3, received.Dimensions)
}

func TestRemoteEmbedderOmitsDimensionsByDefault(t *testing.T) {
	var raw map[string]any
	vec := make([]float64, DefaultDimension)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &raw)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	}))
	defer server.Close()

	r := NewRemoteEmbedder(server.URL, "key", "")
	_, err := r.Embed(context.Background(), "text")
	require.NoError(t, err)

	_, ok := raw["dimensions"]
	assert.False(t, ok, "dimensions should be omitted when not configured")
	assert.Equal(t, DefaultModel, raw["model"])
}

func TestRemoteEmbedderMissingCredential(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	r := NewRemoteEmbedder(server.URL, "", "m")
	assert.False(t, r.HasCredential())

	_, err := r.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	assert.False(t, called, "no request should be made without a credential")
}

func TestRemoteEmbedderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := NewRemoteEmbedder(server.URL, "bad", "m").Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderError))
	assert.False(t, errors.Is(err, ErrProviderUnavailable))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Incorrect API key provided", apiErr.Message)
}

func TestRemoteEmbedderServerErrorRawBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal error\n"))
	}))
	defer server.Close()

	_, err := NewRemoteEmbedder(server.URL, "key", "m").Embed(context.Background(), "text")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "internal error", apiErr.Message)
	assert.Contains(t, err.Error(), "500")
}

func TestRemoteEmbedderMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"no data", `{"data": []}`},
		{"empty vector", `{"data": [{"embedding": []}]}`},
		{"wrong width", `{"data": [{"embedding": [1, 2]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewRemoteEmbedder(server.URL, "key", "m", WithDimensions(3)).Embed(context.Background(), "text")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProviderError), "got %v", err)
		})
	}
}

func TestRemoteEmbedderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewRemoteEmbedder(url, "key", "m").Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
}

func TestRemoteEmbedderCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	vec, err := NewRemoteEmbedder(server.URL, "key", "m").Embed(ctx, "text")
	require.Error(t, err)
	assert.Nil(t, vec)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
}

func TestRemoteEmbedderRateLimitHonoursContext(t *testing.T) {
	server := embeddingServer(t, []float64{1, 2, 3})
	r := NewRemoteEmbedder(server.URL, "key", "m", WithDimensions(3), WithRateLimit(0.001, 1))

	_, err := r.Embed(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Embed(ctx, "second")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
}

func TestValidateCredentials(t *testing.T) {
	server := embeddingServer(t, []float64{0.5, 0.5})
	assert.NoError(t, ValidateCredentials(context.Background(), server.URL, "key", "m"))
	assert.Error(t, ValidateCredentials(context.Background(), server.URL, "", "m"))
}
