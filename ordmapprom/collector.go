// Package ordmapprom exports ordmap Index statistics to Prometheus.
package ordmapprom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/andreyvit/ordmap"
)

// StatsSource is implemented by *ordmap.Index of any value type.
type StatsSource interface {
	Stats() ordmap.Stats
}

// Collector reports the statistics of one Index, labeled with its name.
type Collector struct {
	src StatsSource

	items           *prometheus.Desc
	mainSize        *prometheus.Desc
	recentSize      *prometheus.Desc
	recentHoles     *prometheus.Desc
	recentCapacity  *prometheus.Desc
	changeStamp     *prometheus.Desc
	reconciliations *prometheus.Desc
	resorts         *prometheus.Desc
	lookups         *prometheus.Desc
}

func NewCollector(name string, src StatsSource) *Collector {
	labels := prometheus.Labels{"index": name}
	desc := func(metric, help string, variable ...string) *prometheus.Desc {
		return prometheus.NewDesc("ordmap_"+metric, help, variable, labels)
	}
	return &Collector{
		src:             src,
		items:           desc("items", "Number of live items"),
		mainSize:        desc("main_size", "Number of items in the sorted main array"),
		recentSize:      desc("recent_size", "Number of recent buffer slots in use, including holes"),
		recentHoles:     desc("recent_holes", "Number of removed recent slots awaiting reconciliation"),
		recentCapacity:  desc("recent_capacity", "Current bound on the recent buffer"),
		changeStamp:     desc("change_stamp", "Current mutation counter"),
		reconciliations: desc("reconciliations_total", "Number of recent-into-main merges"),
		resorts:         desc("resorts_total", "Number of full resorts by algorithm", "algo"),
		lookups:         desc("main_lookups_total", "Number of main array lookups by method", "method"),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.items
	ch <- c.mainSize
	ch <- c.recentSize
	ch <- c.recentHoles
	ch <- c.recentCapacity
	ch <- c.changeStamp
	ch <- c.reconciliations
	ch <- c.resorts
	ch <- c.lookups
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	gauge := func(d *prometheus.Desc, v float64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v, labels...)
	}
	counter := func(d *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	gauge(c.items, float64(s.Count))
	gauge(c.mainSize, float64(s.MainSize))
	gauge(c.recentSize, float64(s.RecentSize))
	gauge(c.recentHoles, float64(s.RecentHoles()))
	gauge(c.recentCapacity, float64(s.RecentCapacity))
	gauge(c.changeStamp, float64(s.ChangeStamp))
	counter(c.reconciliations, s.Reconciliations)
	counter(c.resorts, s.Quicksorts, "quick")
	counter(c.resorts, s.BubbleSorts, "bubble")
	counter(c.lookups, s.FastPathHits, "fast_path")
	counter(c.lookups, s.PartitionSearches, "partition")
}
