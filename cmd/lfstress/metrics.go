package main

import (
	"github.com/g-m-twostay/go-lockfree/Hazard"
	"github.com/prometheus/client_golang/prometheus"
)

// hazardCollector exports the stats of a hazard domain at scrape time.
type hazardCollector struct {
	stats                                   func() Hazard.Stats
	records, slots, published, retired, rec *prometheus.Desc
}

func newHazardCollector(structure string, stats func() Hazard.Stats) *hazardCollector {
	labels := prometheus.Labels{"structure": structure}
	return &hazardCollector{
		stats:     stats,
		records:   prometheus.NewDesc("lfstress_hazard_records", "Hazard records created, idle ones included.", nil, labels),
		slots:     prometheus.NewDesc("lfstress_hazard_slots", "Hazard slots over all records.", nil, labels),
		published: prometheus.NewDesc("lfstress_hazard_published_slots", "Hazard slots holding a pointer.", nil, labels),
		retired:   prometheus.NewDesc("lfstress_hazard_retired_nodes", "Retired nodes waiting to be reclaimed.", nil, labels),
		rec:       prometheus.NewDesc("lfstress_hazard_reclaimed_nodes_total", "Nodes reclaimed so far.", nil, labels),
	}
}

func (c *hazardCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.records
	ch <- c.slots
	ch <- c.published
	ch <- c.retired
	ch <- c.rec
}

func (c *hazardCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, float64(s.Records))
	ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(s.Slots))
	ch <- prometheus.MustNewConstMetric(c.published, prometheus.GaugeValue, float64(s.Published))
	ch <- prometheus.MustNewConstMetric(c.retired, prometheus.GaugeValue, float64(s.Retired))
	ch <- prometheus.MustNewConstMetric(c.rec, prometheus.CounterValue, float64(s.Reclaimed))
}

type metrics struct {
	reg *prometheus.Registry
	ops *prometheus.CounterVec
}

func newMetrics(structure string, stats func() Hazard.Stats) *metrics {
	m := &metrics{
		reg: prometheus.NewRegistry(),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "lfstress_operations_total",
			Help:        "Operations run by the workers.",
			ConstLabels: prometheus.Labels{"structure": structure},
		}, []string{"op", "outcome"}),
	}
	m.reg.MustRegister(m.ops, newHazardCollector(structure, stats))
	return m
}

func (m *metrics) observe(op string, ok bool) {
	outcome := "hit"
	if !ok {
		outcome = "miss"
	}
	m.ops.WithLabelValues(op, outcome).Inc()
}
