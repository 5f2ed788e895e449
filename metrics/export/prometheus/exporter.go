package prometheus

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrEthical07/storegate"
	"github.com/MrEthical07/storegate/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() storegate.MetricsSnapshot
	AuditDropped() uint64
}

type histogramDesc struct {
	id   storegate.MetricID
	desc *prom.Desc
}

// Collector is a prometheus.Collector over storegate's counters. It reads
// one snapshot per scrape and keeps no state of its own.
type Collector struct {
	source       metricsSource
	counters     []*prom.Desc
	counterIDs   []storegate.MetricID
	histograms   []histogramDesc
	auditDropped *prom.Desc
}

// NewCollector creates a collector reading from m.
func NewCollector(m *storegate.Manager) *Collector {
	return NewCollectorFromSource(m)
}

// NewGateCollector creates a collector for a process that only runs the
// edge gate.
func NewGateCollector(m *storegate.Metrics) *Collector {
	return NewCollectorFromSource(internaldefs.MetricsOnly{Metrics: m})
}

// NewCollectorFromSource creates a collector from any snapshot source.
func NewCollectorFromSource(source metricsSource) *Collector {
	c := &Collector{
		source:       source,
		counters:     make([]*prom.Desc, 0, len(internaldefs.CounterDefs)),
		counterIDs:   make([]storegate.MetricID, 0, len(internaldefs.CounterDefs)),
		histograms:   make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prom.NewDesc(internaldefs.AuditDroppedName, "Dropped audit events due to dispatcher backpressure.", nil, nil),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, prom.NewDesc(def.Name, def.Help, nil, nil))
		c.counterIDs = append(c.counterIDs, def.ID)
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, histogramDesc{id: def.ID, desc: prom.NewDesc(def.Name, def.Help, nil, nil)})
	}
	return c
}

func (c *Collector) Describe(ch chan<- *prom.Desc) {
	for _, d := range c.counters {
		ch <- d
	}
	for _, h := range c.histograms {
		ch <- h.desc
	}
	ch <- c.auditDropped
}

func (c *Collector) Collect(ch chan<- prom.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()
	for i, d := range c.counters {
		ch <- prom.MustNewConstMetric(d, prom.CounterValue, float64(snapshot.Counters[c.counterIDs[i]]))
	}
	for _, h := range c.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramBounds))
		for i, le := range internaldefs.HistogramBounds {
			buckets[le] = cumulative[i]
		}
		// snapshots keep bucket counts only, so the sum is reported as zero
		ch <- prom.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], 0, buckets)
	}
	ch <- prom.MustNewConstMetric(c.auditDropped, prom.CounterValue, float64(c.source.AuditDropped()))
}

// Handler serves the collector from a private registry.
func (c *Collector) Handler() http.Handler {
	reg := prom.NewRegistry()
	reg.MustRegister(c)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
