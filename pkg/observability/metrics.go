package observability

import (
	"context"

	"github.com/aretw0/zonerules/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the resolution counters and latencies.
type Metrics struct {
	// Rules lookups by group and outcome ("hit", "miss", "error")
	Lookups *prometheus.CounterVec

	// Provider latency of uncached lookups by group
	LookupLatency *prometheus.HistogramVec

	// Local date-time classifications by kind ("normal", "gap", "overlap")
	Resolutions *prometheus.CounterVec
}

// NewMetrics registers the metrics with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zonerules_lookups_total",
			Help: "Total rules lookups by group and outcome",
		}, []string{"group", "outcome"}),

		LookupLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zonerules_lookup_duration_seconds",
			Help:    "Duration of uncached rules lookups by group",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"group"}),

		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "zonerules_local_resolutions_total",
			Help: "Total local date-time resolutions by kind",
		}, []string{"kind"}),
	}
}

// ObserveLookup records one registry lookup.
func (m *Metrics) ObserveLookup(e *domain.ResolveEvent) {
	if m == nil {
		return
	}
	switch {
	case e.Err != nil:
		m.Lookups.WithLabelValues(e.Group, "error").Inc()
	case e.Cached:
		m.Lookups.WithLabelValues(e.Group, "hit").Inc()
	default:
		m.Lookups.WithLabelValues(e.Group, "miss").Inc()
		m.LookupLatency.WithLabelValues(e.Group).Observe(e.Duration.Seconds())
	}
}

// ObserveResolution records one local date-time classification.
func (m *Metrics) ObserveResolution(kind domain.ResolutionKind) {
	if m != nil {
		m.Resolutions.WithLabelValues(kind.String()).Inc()
	}
}

// Hooks binds the metrics to resolution events.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnRulesResolved: func(_ context.Context, e *domain.ResolveEvent) { m.ObserveLookup(e) },
		OnLocalResolved: func(_ context.Context, e *domain.LocalEvent) { m.ObserveResolution(e.Kind) },
	}
}
