// Package metric provides Prometheus metrics for Pedis.
package metric

import "github.com/prometheus/client_golang/prometheus"

// KeyCounter reports how many keys a store holds.
type KeyCounter func() (int, error)

// Collector exports the live key count of a store at scrape time.
type Collector struct {
	count KeyCounter
	desc  *prometheus.Desc
}

// NewCollector creates a collector around count.
func NewCollector(count KeyCounter) *Collector {
	return &Collector{
		count: count,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "keys"),
			"Number of keys currently held by the store.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	n, err := c.count()
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n))
}
