// Package metrics exports store statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jacentio/forest/store"
)

// StatsSource is anything that can report a stats snapshot.
// *store.Store satisfies it for every id type.
type StatsSource interface {
	Stats() store.Stats
}

// Collector reads a StatsSource on every scrape. A *store.Store is not
// synchronized, so scrapes must not overlap its writers.
type Collector struct {
	source StatsSource

	records       *prometheus.Desc
	cachedChains  *prometheus.Desc
	chainHits     *prometheus.Desc
	chainMisses   *prometheus.Desc
	invalidations *prometheus.Desc
}

// NewCollector creates a Collector. constLabels are attached to every
// series, which lets several stores share one registry.
func NewCollector(source StatsSource, constLabels prometheus.Labels) *Collector {
	return &Collector{
		source: source,
		records: prometheus.NewDesc(
			"forest_records",
			"Number of live records in the store",
			nil, constLabels,
		),
		cachedChains: prometheus.NewDesc(
			"forest_cached_chains",
			"Number of memoized ancestor chains",
			nil, constLabels,
		),
		chainHits: prometheus.NewDesc(
			"forest_chain_hits_total",
			"Ancestor chain lookups served from the cache",
			nil, constLabels,
		),
		chainMisses: prometheus.NewDesc(
			"forest_chain_misses_total",
			"Ancestor chain lookups that walked the parent relation",
			nil, constLabels,
		),
		invalidations: prometheus.NewDesc(
			"forest_chain_invalidations_total",
			"Cached ancestor chains dropped by mutations",
			nil, constLabels,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.records
	ch <- c.cachedChains
	ch <- c.chainHits
	ch <- c.chainMisses
	ch <- c.invalidations
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.source.Stats()
	ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, float64(st.Records))
	ch <- prometheus.MustNewConstMetric(c.cachedChains, prometheus.GaugeValue, float64(st.CachedChains))
	ch <- prometheus.MustNewConstMetric(c.chainHits, prometheus.CounterValue, float64(st.ChainHits))
	ch <- prometheus.MustNewConstMetric(c.chainMisses, prometheus.CounterValue, float64(st.ChainMisses))
	ch <- prometheus.MustNewConstMetric(c.invalidations, prometheus.CounterValue, float64(st.Invalidations))
}
