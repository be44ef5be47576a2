// ABOUTME: Prometheus instrumentation for gateway embedding requests.
// ABOUTME: Counts outcomes per provider and observes request latency; nil metrics are a no-op.
package embeddings

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeFallback = "fallback"
)

// Metrics records gateway outcomes.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the gateway collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scholar",
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Embedding requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scholar",
			Subsystem: "embedding",
			Name:      "duration_seconds",
			Help:      "Time spent producing an embedding, by provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg != nil {
		if err := reg.Register(m.requests); err != nil {
			return nil, err
		}
		if err := reg.Register(m.duration); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(provider ProviderKind, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(provider), outcome).Inc()
	m.duration.WithLabelValues(string(provider)).Observe(time.Since(start).Seconds())
}
