// Package metrics holds the Prometheus instruments for the sync pipeline.
// Instruments are created per process and injected, not package globals.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	PagesFetched     *prometheus.CounterVec
	SyncRuns         *prometheus.CounterVec
	LLMCalls         prometheus.Counter
	LLMFailures      prometheus.Counter
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	RowsUpserted     *prometheus.CounterVec
	SyncDuration     prometheus.Histogram
	CategorizeTiming prometheus.Histogram
}

// New registers every instrument on reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finagent_sync_pages_fetched_total",
			Help: "Aggregator pages fetched, by stream.",
		}, []string{"stream"}),
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finagent_sync_runs_total",
			Help: "Item sync runs, by outcome.",
		}, []string{"outcome"}),
		LLMCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finagent_llm_calls_total",
			Help: "LLM categorization round trips issued.",
		}),
		LLMFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finagent_llm_failures_total",
			Help: "LLM round trips that failed.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finagent_categorize_cache_hits_total",
			Help: "Categorization results served from the content-addressed cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "finagent_categorize_cache_misses_total",
			Help: "Categorization requests that needed an LLM call.",
		}),
		RowsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "finagent_rows_upserted_total",
			Help: "Persistence row outcomes, by kind.",
		}, []string{"kind"}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finagent_item_sync_duration_seconds",
			Help:    "Wall time of one item sync.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		CategorizeTiming: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "finagent_categorize_batch_duration_seconds",
			Help:    "Wall time of one categorization batch.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
	reg.MustRegister(
		m.PagesFetched, m.SyncRuns, m.LLMCalls, m.LLMFailures,
		m.CacheHits, m.CacheMisses, m.RowsUpserted,
		m.SyncDuration, m.CategorizeTiming,
	)
	return m
}

// NewForTest returns a bundle on a private registry, for use in tests.
func NewForTest() *Metrics {
	return New(prometheus.NewRegistry())
}
