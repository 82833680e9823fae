// Package metric provides Prometheus metrics for Pedis.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: Custom collector reporting the live key count
//
// Metrics include:
//
//   - Command counts and latency histograms
//   - Store operation outcomes (ok, not_found, mismatch, error)
//   - Connection and protocol error counters
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
