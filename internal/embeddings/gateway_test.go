// ABOUTME: Tests for gateway provider selection, fallback policy, and cancellation.
// ABOUTME: Uses a scripted embedder that counts calls to prove the remote path is skipped.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedEmbedder returns a fixed vector or error and counts calls.
type scriptedEmbedder struct {
	vec   []float64
	err   error
	dim   int
	calls int
}

func (s *scriptedEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *scriptedEmbedder) Dimension() int {
	return s.dim
}

func TestGatewayMockNeverCallsRemote(t *testing.T) {
	remote := &scriptedEmbedder{err: errors.New("must not be called"), dim: 16}
	g := NewGateway(Config{Provider: ProviderMock, AllowMockFallback: false}, remote)

	res, err := g.Resolve(context.Background(), "some text")
	require.NoError(t, err)

	want, _ := NewMockEmbedder(16).Embed(context.Background(), "some text")
	assert.Equal(t, want, res.Vector)
	assert.Equal(t, ProviderMock, res.Source)
	assert.False(t, res.FellBack)
	assert.Equal(t, 0, remote.calls)
}

func TestGatewayRemoteSuccess(t *testing.T) {
	remote := &scriptedEmbedder{vec: []float64{1, 2, 3}, dim: 3}
	g := NewGateway(Config{Provider: ProviderRemote, AllowMockFallback: true}, remote)

	res, err := g.Resolve(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, res.Vector)
	assert.Equal(t, ProviderRemote, res.Source)
	assert.Equal(t, 1, remote.calls)
}

func TestGatewayFallbackWithoutCredential(t *testing.T) {
	remote := NewRemoteEmbedder("http://127.0.0.1:1", "", "m", WithDimensions(8))
	g := NewGateway(Config{Provider: ProviderRemote, AllowMockFallback: true}, remote)

	vec, err := g.Embed(context.Background(), "fallback text")
	require.NoError(t, err)

	want, _ := NewMockEmbedder(8).Embed(context.Background(), "fallback text")
	assert.Equal(t, want, vec)
}

func TestGatewayNoFallbackWithoutCredential(t *testing.T) {
	remote := NewRemoteEmbedder("http://127.0.0.1:1", "", "m")
	g := NewGateway(Config{Provider: ProviderRemote, AllowMockFallback: false}, remote)

	vec, err := g.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.Nil(t, vec)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
}

func TestGatewayNilRemoteIsUnavailable(t *testing.T) {
	g := NewGateway(Config{Provider: ProviderRemote}, nil)

	_, err := g.Embed(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	assert.Equal(t, DefaultDimension, g.Dimension())
}

func TestGatewayProviderErrorPropagates(t *testing.T) {
	apiErr := &APIError{StatusCode: 429, Message: "rate limited"}
	remote := &scriptedEmbedder{err: apiErr, dim: 4}
	g := NewGateway(Config{Provider: ProviderRemote, AllowMockFallback: false}, remote)

	_, err := g.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProviderError))

	var got *APIError
	require.True(t, errors.As(err, &got))
	assert.Same(t, apiErr, got)
	assert.Equal(t, 1, remote.calls)
}

func TestGatewayUnclassifiedErrorBecomesProviderError(t *testing.T) {
	remote := &scriptedEmbedder{err: fmt.Errorf("boom"), dim: 4}
	g := NewGateway(Config{Provider: ProviderRemote}, remote)

	_, err := g.Embed(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrProviderError))
}

func TestGatewayFallbackOnProviderError(t *testing.T) {
	remote := &scriptedEmbedder{err: &APIError{StatusCode: 500, Message: "down"}, dim: 4}
	g := NewGateway(Config{Provider: ProviderRemote, AllowMockFallback: true}, remote)

	res, err := g.Resolve(context.Background(), "text")
	require.NoError(t, err)
	assert.True(t, res.FellBack)
	assert.Equal(t, ProviderMock, res.Source)
	assert.True(t, errors.Is(res.Cause, ErrProviderError))
	assert.Len(t, res.Vector, 4)
	assert.Equal(t, 1, remote.calls, "remote must be attempted exactly once")
}

func TestGatewayCancelledContextNeverFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	remote := &scriptedEmbedder{vec: []float64{1, 1, 1, 1}, dim: 4}
	g := NewGateway(Config{Provider: ProviderRemote, AllowMockFallback: true}, remote)

	res, err := g.Resolve(ctx, "text")
	require.Error(t, err)
	assert.Nil(t, res.Vector)
	assert.True(t, errors.Is(err, ErrProviderUnavailable))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGatewayWithConfig(t *testing.T) {
	remote := &scriptedEmbedder{err: errors.New("down"), dim: 4}
	strict := NewGateway(Config{Provider: ProviderRemote}, remote)
	lenient := strict.WithConfig(Config{Provider: ProviderRemote, AllowMockFallback: true})

	_, err := strict.Embed(context.Background(), "text")
	assert.Error(t, err)

	_, err = lenient.Embed(context.Background(), "text")
	assert.NoError(t, err)
	assert.False(t, strict.Config().AllowMockFallback, "WithConfig must not mutate the original")
}

func TestGatewayCustomMockFailure(t *testing.T) {
	failing := &scriptedEmbedder{err: errors.New("broken mock"), dim: 4}
	g := NewGateway(Config{Provider: ProviderMock}, nil, WithMockEmbedder(failing))

	_, err := g.Embed(context.Background(), "text")
	assert.True(t, errors.Is(err, ErrProviderError))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{Provider: ProviderMock}.Validate())
	assert.NoError(t, Config{Provider: ProviderRemote}.Validate())
	assert.Error(t, Config{Provider: "cohere"}.Validate())
}

func TestParseProviderKind(t *testing.T) {
	tests := []struct {
		input string
		want  ProviderKind
		ok    bool
	}{
		{"mock", ProviderMock, true},
		{"remote", ProviderRemote, true},
		{"openai", ProviderRemote, true},
		{"", ProviderRemote, true},
		{"other", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseProviderKind(tt.input)
		assert.Equal(t, tt.want, got, tt.input)
		assert.Equal(t, tt.ok, ok, tt.input)
	}
}

func TestGatewayMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	remote := &scriptedEmbedder{err: errors.New("down"), dim: 4}
	g := NewGateway(Config{Provider: ProviderRemote, AllowMockFallback: true}, remote, WithMetrics(m))
	_, _ = g.Embed(context.Background(), "a")
	_, _ = g.Embed(context.Background(), "b")

	mock := g.WithConfig(Config{Provider: ProviderMock})
	_, _ = mock.Embed(context.Background(), "c")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("remote", "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("mock", "success")))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "registering twice on the same registry should fail")
}
