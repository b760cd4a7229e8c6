// Package metrics exports allocator accounting to Prometheus.
//
//	a, _ := fixedpool.New[Order](fixedpool.Config)
//	prometheus.MustRegister(metrics.NewCollector("orders", a))
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	fixedpool "github.com/replay/go-fixed-pool"
)

const namespace = "fixedpool"

// StatsSource is anything that can report allocator accounting, such as
// a *fixedpool.Allocator.
type StatsSource interface {
	Stats() fixedpool.Stats
}

// Collector reads a StatsSource on every scrape. The values are taken
// from a single snapshot so they are consistent with each other.
type Collector struct {
	src StatsSource

	pools     *prometheus.Desc
	blocks    *prometheus.Desc
	available *prometheus.Desc
	allocated *prometheus.Desc
	total     *prometheus.Desc
	poolBytes *prometheus.Desc
}

// NewCollector returns a collector labelling every metric with pool=name.
func NewCollector(name string, src StatsSource) *Collector {
	labels := prometheus.Labels{"pool": name}
	desc := func(metric, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", metric), help, nil, labels)
	}
	return &Collector{
		src:       src,
		pools:     desc("pools", "Number of pools in the chain."),
		blocks:    desc("blocks", "Number of slots handed out."),
		available: desc("available_slots", "Number of free slots across all pools."),
		allocated: desc("allocated_bytes", "Bytes handed out to callers."),
		total:     desc("total_bytes", "Bytes reserved by all pools, bookkeeping included."),
		poolBytes: desc("pool_bytes", "Bytes reserved by one pool."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pools
	ch <- c.blocks
	ch <- c.available
	ch <- c.allocated
	ch <- c.total
	ch <- c.poolBytes
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	ch <- prometheus.MustNewConstMetric(c.pools, prometheus.GaugeValue, float64(s.Pools))
	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.GaugeValue, float64(s.Blocks))
	ch <- prometheus.MustNewConstMetric(c.available, prometheus.GaugeValue, float64(s.Available))
	ch <- prometheus.MustNewConstMetric(c.allocated, prometheus.GaugeValue, float64(s.Allocated))
	ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(c.poolBytes, prometheus.GaugeValue, float64(s.PoolSize))
}
