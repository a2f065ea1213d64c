// Package metrics exposes the prometheus instruments for the settlement
// core. Everything is registered on the default registry; cmd/server serves
// it via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recalculations counts full balance recomputations per group cache.
	Recalculations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_balance_recalculations_total",
		Help: "Number of full group balance recalculations.",
	})

	// RecalculationDuration observes how long a full recompute takes,
	// including the cache write.
	RecalculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "splitledger_balance_recalculation_seconds",
		Help:    "Duration of group balance recalculations.",
		Buckets: prometheus.DefBuckets,
	})

	// StaleCacheWrites counts compare-and-set rejections: a recompute
	// finished after a newer one already replaced the cache.
	StaleCacheWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_balance_stale_writes_total",
		Help: "Number of cache writes rejected because the version was stale.",
	})

	// CacheReads counts cache lookups by outcome (hit or miss).
	CacheReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_balance_cache_reads_total",
		Help: "Number of cached balance reads by outcome.",
	}, []string{"outcome"})

	// OptimizerRuns counts netting runs by algorithm (normal or advanced).
	OptimizerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_optimizer_runs_total",
		Help: "Number of settlement optimizer runs by algorithm.",
	}, []string{"algorithm"})
)
