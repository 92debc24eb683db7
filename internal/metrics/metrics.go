// Package metrics exposes the Prometheus instrumentation for the RDS
// cache: a package-level registry holding a namespace-scoped set of
// collectors, registered once in init.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the registry the cache's collectors are registered against.
// cmd/rdsctl serve exposes it on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// Lookups counts every OR-branch processed by Prepare, split by whether
	// the catalog already held its rds_id.
	Lookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rds_cache",
		Name:      "lookups_total",
		Help:      "Subquery lookups processed by Prepare, by result.",
	}, []string{"result"})

	// BuildDuration times a Builder.Build call end to end (phases 2-4).
	BuildDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rds",
		Name:      "build_duration_seconds",
		Help:      "Wall time to materialise one subquery's RDS rows.",
		Buckets:   prometheus.DefBuckets,
	})

	// CatalogEntries is a gauge of live (non-expired) catalog rows,
	// refreshed by the expiry sweeper.
	CatalogEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "rds",
		Name:      "catalog_entries",
		Help:      "Live (non-expired) RDS_catalog rows.",
	})

	// Invalidations counts Invalidate calls.
	Invalidations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rds",
		Name:      "invalidations_total",
		Help:      "Invalidate calls processed.",
	})
)

func init() {
	Registry.MustRegister(Lookups, BuildDuration, CatalogEntries, Invalidations)
}

// Hit records a cache hit (the catalog already had the subquery's rds_id).
func Hit() {
	Lookups.WithLabelValues("hit").Inc()
}

// Miss records a cache miss (the subquery had to be built).
func Miss() {
	Lookups.WithLabelValues("miss").Inc()
}
