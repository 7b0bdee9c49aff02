package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total search requests by outcome",
		},
		[]string{"status"}, // "ok" / "error"
	)

	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_cache_total",
			Help:      "Search-side cache lookups",
		},
		[]string{"cache", "result"}, // cache: "result" / "relationship"
	)

	SearchModalityFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_modality_failures_total",
			Help:      "Per-modality retrieval failures skipped by the pipeline",
		},
		[]string{"modality", "stage"}, // stage: "retrieval" / "cross_modal"
	)

	CrossModalMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crossmodal_matches_total",
			Help:      "Cross-modal matches produced by relationship kind",
		},
		[]string{"relationship"},
	)

	StrategyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_failures_total",
			Help:      "Ensemble strategies dropped after failing",
		},
		[]string{"strategy"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(SearchModalityFailuresTotal)
	prometheus.MustRegister(CrossModalMatchesTotal)
	prometheus.MustRegister(StrategyFailuresTotal)
	searchMetricsRegistered = true
}

// ObserveSearch records the outcome and latency of a search call.
func ObserveSearch(took time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	SearchRequestsTotal.WithLabelValues(status).Inc()
	SearchDuration.Observe(took.Seconds())
}

// CacheLookup records a cache hit or miss.
func CacheLookup(cache string, hit bool) {
	res := "miss"
	if hit {
		res = "hit"
	}
	SearchCacheTotal.WithLabelValues(cache, res).Inc()
}
