// Package prom provides a Prometheus-backed vecdisk.MetricsCollector.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements vecdisk.MetricsCollector on top of Prometheus.
// Register it via vecdisk.WithMetricsCollector.
type Collector struct {
	insertTotal    prometheus.Counter
	insertErrors   prometheus.Counter
	insertDuration prometheus.Histogram
	searchTotal    prometheus.Counter
	searchErrors   prometheus.Counter
	searchDuration prometheus.Histogram
	searchK        prometheus.Histogram
	deleteTotal    prometheus.Counter
	deleteErrors   prometheus.Counter
	batchTotal     prometheus.Counter
	batchDeferred  prometheus.Counter
	batchDuration  prometheus.Histogram
	cacheHits      prometheus.Gauge
	cacheMisses    prometheus.Gauge
}

// NewCollector creates a Collector registered with reg. Pass nil to use the
// default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Collector{
		insertTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_insert_total",
			Help: "Total number of insert operations",
		}),
		insertErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_insert_errors_total",
			Help: "Total number of failed insert operations",
		}),
		insertDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vecdisk_insert_duration_seconds",
			Help:    "Duration of insert operations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		searchTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_search_total",
			Help: "Total number of search operations",
		}),
		searchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_search_errors_total",
			Help: "Total number of failed search operations",
		}),
		searchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vecdisk_search_duration_seconds",
			Help:    "Duration of search operations",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		searchK: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vecdisk_search_k",
			Help:    "Requested neighbor counts",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		deleteTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_delete_total",
			Help: "Total number of delete operations",
		}),
		deleteErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_delete_errors_total",
			Help: "Total number of failed delete operations",
		}),
		batchTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_batch_total",
			Help: "Total number of batch repair passes",
		}),
		batchDeferred: factory.NewCounter(prometheus.CounterOpts{
			Name: "vecdisk_batch_deferred_edges_total",
			Help: "Total number of deferred back-edges applied by batch repair",
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vecdisk_batch_duration_seconds",
			Help:    "Duration of batch repair passes",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		cacheHits: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vecdisk_cache_hits",
			Help: "Cumulative block cache hits",
		}),
		cacheMisses: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vecdisk_cache_misses",
			Help: "Cumulative block cache misses",
		}),
	}
}

// RecordInsert implements vecdisk.MetricsCollector.
func (c *Collector) RecordInsert(duration time.Duration, err error) {
	c.insertTotal.Inc()
	c.insertDuration.Observe(duration.Seconds())
	if err != nil {
		c.insertErrors.Inc()
	}
}

// RecordSearch implements vecdisk.MetricsCollector.
func (c *Collector) RecordSearch(k int, duration time.Duration, err error) {
	c.searchTotal.Inc()
	c.searchDuration.Observe(duration.Seconds())
	c.searchK.Observe(float64(k))
	if err != nil {
		c.searchErrors.Inc()
	}
}

// RecordDelete implements vecdisk.MetricsCollector.
func (c *Collector) RecordDelete(duration time.Duration, err error) {
	c.deleteTotal.Inc()
	if err != nil {
		c.deleteErrors.Inc()
	}
}

// RecordBatch implements vecdisk.MetricsCollector.
func (c *Collector) RecordBatch(deferred int, duration time.Duration, err error) {
	c.batchTotal.Inc()
	c.batchDeferred.Add(float64(deferred))
	c.batchDuration.Observe(duration.Seconds())
}

// RecordCacheAccess implements vecdisk.MetricsCollector.
func (c *Collector) RecordCacheAccess(hits, misses int64) {
	c.cacheHits.Set(float64(hits))
	c.cacheMisses.Set(float64(misses))
}
