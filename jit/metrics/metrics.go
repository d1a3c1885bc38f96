// Package metrics wires the driver's per-query counters into Prometheus,
// the observability backend the ambient-stack expansion settled on (see
// SPEC_FULL.md's dependency ledger) in place of the teacher's unused
// DataDog/circonus alternatives.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector bundles the counters a single pipeline instance updates while
// it runs. Callers create one per Driver (or share one across a process via
// NewCollector + prometheus.MustRegister) and hand it to the RuntimeContext.
type Collector struct {
	RowsRead     prometheus.Counter
	RowsEmitted  prometheus.Counter
	RowsFiltered prometheus.Counter
	ChunksRead   prometheus.Counter
	Groups       prometheus.Gauge
	QueryLatency prometheus.Histogram
}

// NewCollector builds a Collector with the standard metric names. It does
// not register with any registry; callers decide whether/where to expose
// it (e.g. via prometheus.MustRegister in a long-lived process, or left
// unregistered for a one-shot cmd/jitdemo run).
func NewCollector() *Collector {
	return &Collector{
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jit_rows_read_total",
			Help: "Rows loaded by Read operators.",
		}),
		RowsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jit_rows_emitted_total",
			Help: "Rows that reached the Write operator.",
		}),
		RowsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jit_rows_filtered_total",
			Help: "Rows rejected by Filter or Validate.",
		}),
		ChunksRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jit_chunks_read_total",
			Help: "Input chunks processed.",
		}),
		Groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jit_aggregate_groups",
			Help: "Distinct groups currently held by the aggregate hashmap.",
		}),
		QueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jit_query_duration_seconds",
			Help:    "Wall-clock duration of a full driver run.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Collectors returns every metric, for bulk registration.
func (c *Collector) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.RowsRead, c.RowsEmitted, c.RowsFiltered, c.ChunksRead, c.Groups, c.QueryLatency,
	}
}
