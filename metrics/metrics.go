// Package metrics exposes the pipeline's Prometheus collectors. Everything
// registers against the default registry at init; Handler serves /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Evaluations counts finished pipeline runs by variant and final band.
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phishguard",
		Name:      "evaluations_total",
		Help:      "Completed risk evaluations by variant and final risk band.",
	}, []string{"variant", "band"})

	// ArbiterOutcomes counts terminal arbitration states so fallback rates
	// are visible without log scraping.
	ArbiterOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "phishguard",
		Name:      "arbiter_outcomes_total",
		Help:      "Terminal arbitration outcomes (arbiter verdict vs fallback tiers).",
	}, []string{"outcome"})

	// ArbiterLatency observes how long arbitration took, fallback included.
	ArbiterLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "phishguard",
		Name:      "arbiter_latency_seconds",
		Help:      "Wall-clock arbitration latency.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 22.5},
	})

	// ResolverHops observes redirect chain lengths (hops followed, not URLs).
	ResolverHops = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "phishguard",
		Name:      "resolver_hops",
		Help:      "Redirect hops followed per URL evaluation.",
		Buckets:   []float64{0, 1, 2, 3, 4, 5},
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
