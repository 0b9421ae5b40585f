package store

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("forest.store")

// Metrics for index maintenance and the ancestor chain cache.
var (
	chainHits     metric.Int64Counter
	chainMisses   metric.Int64Counter
	invalidations metric.Int64Counter
	cascadeSize   metric.Int64Histogram
	rebuildSize   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		chainHits, err = meter.Int64Counter(
			"forest_chain_cache_hits_total",
			metric.WithDescription("Ancestor chain lookups served from the cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chainMisses, err = meter.Int64Counter(
			"forest_chain_cache_misses_total",
			metric.WithDescription("Ancestor chain lookups that walked the parent relation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		invalidations, err = meter.Int64Counter(
			"forest_chain_cache_invalidations_total",
			metric.WithDescription("Cached ancestor chains dropped by mutations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cascadeSize, err = meter.Int64Histogram(
			"forest_remove_cascade_records",
			metric.WithDescription("Records removed per cascading delete"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		rebuildSize, err = meter.Int64Histogram(
			"forest_rebuild_records",
			metric.WithDescription("Records indexed per full rebuild"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordChainHit() {
	if err := initMetrics(); err != nil {
		return
	}
	chainHits.Add(context.Background(), 1)
}

func recordChainMiss() {
	if err := initMetrics(); err != nil {
		return
	}
	chainMisses.Add(context.Background(), 1)
}

func recordInvalidations(n int) {
	if n == 0 {
		return
	}
	if err := initMetrics(); err != nil {
		return
	}
	invalidations.Add(context.Background(), int64(n))
}

func recordCascade(n int) {
	if err := initMetrics(); err != nil {
		return
	}
	cascadeSize.Record(context.Background(), int64(n))
}

func recordRebuild(n int) {
	if err := initMetrics(); err != nil {
		return
	}
	rebuildSize.Record(context.Background(), int64(n))
}
