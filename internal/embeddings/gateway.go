// ABOUTME: Gateway selecting the mock or remote embedder and applying the fallback policy.
// ABOUTME: Attempts the remote provider at most once per call; never retries or caches.
package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/2389-research/scholar/internal/logging"
)

// Config selects the provider and whether remote failures may fall back to the mock embedder.
type Config struct {
	Provider          ProviderKind
	AllowMockFallback bool
}

// Validate rejects unknown provider kinds.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMock, ProviderRemote:
		return nil
	default:
		return fmt.Errorf("unknown embedding provider %q (want mock or remote)", c.Provider)
	}
}

// Result is the outcome of a successful gateway call.
type Result struct {
	Vector   []float64
	Source   ProviderKind // embedder that produced Vector
	FellBack bool         // true when the remote attempt failed and the mock answered
	Cause    error        // the remote failure behind a fallback
}

// Gateway is the single entry point for obtaining embeddings.
type Gateway struct {
	cfg     Config
	remote  Embedder
	mock    Embedder
	logger  *log.Logger
	metrics *Metrics
}

var _ Embedder = (*Gateway)(nil)

// GatewayOption configures optional Gateway dependencies.
type GatewayOption func(*Gateway)

// WithMockEmbedder replaces the deterministic embedder used for mock mode and fallback.
func WithMockEmbedder(m Embedder) GatewayOption {
	return func(g *Gateway) {
		if m != nil {
			g.mock = m
		}
	}
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *log.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logging.OrDiscard(l)
	}
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// NewGateway creates a gateway bound to cfg. remote may be nil, which the
// gateway treats the same as a remote provider with no credential.
func NewGateway(cfg Config, remote Embedder, opts ...GatewayOption) *Gateway {
	dim := DefaultDimension
	if remote != nil && remote.Dimension() > 0 {
		dim = remote.Dimension()
	}
	g := &Gateway{
		cfg:    cfg,
		remote: remote,
		mock:   NewMockEmbedder(dim),
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the configuration the gateway is bound to.
func (g *Gateway) Config() Config {
	return g.cfg
}

// WithConfig returns a copy of the gateway bound to a different configuration.
// Embedders, logger, and metrics are shared; nothing mutable is.
func (g *Gateway) WithConfig(cfg Config) *Gateway {
	c := *g
	c.cfg = cfg
	return &c
}

// Dimension returns the width of vectors the gateway produces under its configuration.
func (g *Gateway) Dimension() int {
	if g.cfg.Provider != ProviderMock && g.remote != nil && g.remote.Dimension() > 0 {
		return g.remote.Dimension()
	}
	return g.mock.Dimension()
}

// Embed returns the vector chosen by Resolve.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float64, error) {
	res, err := g.Resolve(ctx, text)
	if err != nil {
		return nil, err
	}
	return res.Vector, nil
}

// Resolve applies the selection policy:
//  1. mock provider: the mock embedder answers and the remote one is never called;
//  2. remote provider: one remote attempt; on failure the mock answers only if
//     fallback is allowed, otherwise the remote failure is returned.
//
// A context that is done when the remote attempt returns always yields an error.
func (g *Gateway) Resolve(ctx context.Context, text string) (Result, error) {
	start := time.Now()

	if g.cfg.Provider == ProviderMock {
		vec, err := g.mock.Embed(ctx, text)
		if err != nil {
			g.metrics.observe(ProviderMock, outcomeError, start)
			return Result{}, classify(err)
		}
		g.metrics.observe(ProviderMock, outcomeSuccess, start)
		return Result{Vector: vec, Source: ProviderMock}, nil
	}

	vec, remoteErr := g.attemptRemote(ctx, text)
	if ctxErr := ctx.Err(); ctxErr != nil {
		g.metrics.observe(ProviderRemote, outcomeError, start)
		return Result{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, ctxErr)
	}
	if remoteErr == nil {
		g.metrics.observe(ProviderRemote, outcomeSuccess, start)
		return Result{Vector: vec, Source: ProviderRemote}, nil
	}

	if !g.cfg.AllowMockFallback {
		g.metrics.observe(ProviderRemote, outcomeError, start)
		return Result{}, remoteErr
	}

	mockVec, err := g.mock.Embed(ctx, text)
	if err != nil {
		g.metrics.observe(ProviderRemote, outcomeError, start)
		return Result{}, fmt.Errorf("fallback after %v: %w", remoteErr, classify(err))
	}
	g.logger.Warn("remote embedding failed, using mock embedding", "err", remoteErr)
	g.metrics.observe(ProviderRemote, outcomeFallback, start)
	return Result{Vector: mockVec, Source: ProviderMock, FellBack: true, Cause: remoteErr}, nil
}

// attemptRemote makes the single remote call and classifies its failure.
func (g *Gateway) attemptRemote(ctx context.Context, text string) ([]float64, error) {
	if g.remote == nil {
		return nil, fmt.Errorf("%w: no remote embedder configured", ErrProviderUnavailable)
	}
	vec, err := g.remote.Embed(ctx, text)
	if err != nil {
		return nil, classify(err)
	}
	return vec, nil
}
