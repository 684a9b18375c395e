package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts propagation failures into the derived stores.
type Metrics struct {
	indexSyncFailures         *prometheus.CounterVec
	cacheInvalidationFailures prometheus.Counter
}

// NewMetrics registers the service collectors with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		indexSyncFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_index_sync_failures_total",
			Help: "Search index writes that failed after the store commit",
		}, []string{"op"}),
		cacheInvalidationFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_invalidation_failures_total",
			Help: "Cache invalidations that failed",
		}),
	}
}
