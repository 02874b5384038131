package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the render pipeline.
type Metrics struct {
	RendersTotal   *prometheus.CounterVec // labels: format={png,jpg,pdf}, outcome={success,error}
	RenderDuration prometheus.Histogram

	FeaturesFetched *prometheus.CounterVec // labels: class={roads,buildings,forests}
	UpstreamErrors  prometheus.Counter

	CacheLookups *prometheus.CounterVec // labels: cache={fetch,render}, result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osmplot",
			Name:      "renders_total",
			Help:      "Completed map renders by output format and outcome.",
		}, []string{"format", "outcome"}),
		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "osmplot",
			Name:      "render_duration_seconds",
			Help:      "Duration of a complete fetch-classify-render cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		FeaturesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osmplot",
			Name:      "features_fetched_total",
			Help:      "Raw ways fetched from the source by dataset class.",
		}, []string{"class"}),
		UpstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "osmplot",
			Name:      "upstream_errors_total",
			Help:      "Failed fetches against the upstream source.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "osmplot",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache layer and result.",
		}, []string{"cache", "result"}),
	}

	prometheus.MustRegister(
		m.RendersTotal,
		m.RenderDuration,
		m.FeaturesFetched,
		m.UpstreamErrors,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RendersTotal:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "osmplot", Name: "renders_total"}, []string{"format", "outcome"}),
		RenderDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "osmplot", Name: "render_duration_seconds"}),
		FeaturesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "osmplot", Name: "features_fetched_total"}, []string{"class"}),
		UpstreamErrors:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "osmplot", Name: "upstream_errors_total"}),
		CacheLookups:    prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "osmplot", Name: "cache_lookups_total"}, []string{"cache", "result"}),
	}
}
