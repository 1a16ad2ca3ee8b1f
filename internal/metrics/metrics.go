// Package metrics exposes prometheus collectors for feed composition.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesComposed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channelfeed_pages_composed_total",
		Help: "Total number of timeline pages composed",
	}, []string{"feed"})

	pageItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "channelfeed_page_items",
		Help:    "Number of items returned per composed page",
		Buckets: []float64{0, 1, 5, 10, 20, 40, 80},
	}, []string{"feed"})

	composeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "channelfeed_compose_duration_seconds",
		Help:    "Duration of page composition including all storage round trips",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"feed"})

	diversityIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "channelfeed_diversity_iterations",
		Help:    "Batches fetched by the diversity limiter per page",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
	})

	diversityDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "channelfeed_diversity_dropped_total",
		Help: "Items dropped because their owner exceeded the per-page share",
	})

	thresholdLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channelfeed_threshold_lookups_total",
		Help: "Threshold cache lookups by metric and result (hit, miss, zero)",
	}, []string{"metric", "result"})

	itemsMarkedSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "channelfeed_items_marked_seen_total",
		Help: "Rows flipped from unseen to seen",
	})

	storageErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "channelfeed_storage_errors_total",
		Help: "Storage failures by operation",
	}, []string{"op"})
)

// ObservePage records one composed page
func ObservePage(feed string, items int, elapsed time.Duration) {
	pagesComposed.WithLabelValues(feed).Inc()
	pageItems.WithLabelValues(feed).Observe(float64(items))
	composeDuration.WithLabelValues(feed).Observe(elapsed.Seconds())
}

// ObserveDiversity records one diversity pass
func ObserveDiversity(iterations, dropped int) {
	diversityIterations.Observe(float64(iterations))
	diversityDropped.Add(float64(dropped))
}

// ThresholdLookup records a threshold cache lookup
func ThresholdLookup(metric, result string) {
	thresholdLookups.WithLabelValues(metric, result).Inc()
}

// MarkedSeen records rows updated by the seen tracker
func MarkedSeen(n int64) {
	itemsMarkedSeen.Add(float64(n))
}

// StorageError records a failed storage operation
func StorageError(op string) {
	storageErrors.WithLabelValues(op).Inc()
}
