// Package metric provides Prometheus metrics for Pedis.
package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pedis"

// Registry holds all application metrics on a dedicated Prometheus registry.
//
// A nil *Registry is valid; every recording method is then a no-op.
type Registry struct {
	registry *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ProtocolErrors    prometheus.Counter
	RateLimited       prometheus.Counter
}

// NewRegistry creates a registry with the Go runtime and process collectors
// and all Pedis metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Total commands executed, by command and reply status.",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution time in seconds.",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		}, []string{"command"}),

		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Store operations, by operation and result.",
		}, []string{"op", "result"}),
		StoreDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation time in seconds.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}, []string{"op"}),

		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Currently open client connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Frames rejected by the protocol decoder.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per-connection rate limiter.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CommandsTotal,
		r.CommandDuration,
		r.StoreOperations,
		r.StoreDuration,
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.ProtocolErrors,
		r.RateLimited,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns the process-wide registry.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns an HTTP handler for the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Prometheus returns the underlying Prometheus registry, for components
// that register their own collectors.
func (r *Registry) Prometheus() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler returns an HTTP handler serving this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveCommand records one executed command.
func (r *Registry) ObserveCommand(command, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.CommandsTotal.WithLabelValues(command, status).Inc()
	r.CommandDuration.WithLabelValues(command).Observe(elapsed.Seconds())
}

// ObserveStore records one store operation.
func (r *Registry) ObserveStore(op, result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.StoreOperations.WithLabelValues(op, result).Inc()
	r.StoreDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.ConnectionsTotal.Inc()
	r.ConnectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.ConnectionsActive.Dec()
}

// IncProtocolErrors records a rejected frame.
func (r *Registry) IncProtocolErrors() {
	if r == nil {
		return
	}
	r.ProtocolErrors.Inc()
}

// IncRateLimited records a rate-limited command.
func (r *Registry) IncRateLimited() {
	if r == nil {
		return
	}
	r.RateLimited.Inc()
}
