// Package metrics exposes the simulator's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector the simulator records to.
type Registry struct {
	ModbusRequests   *prometheus.CounterVec
	ModbusExceptions *prometheus.CounterVec
	MemoryOps        *prometheus.CounterVec
	SimulationTicks  *prometheus.CounterVec
	SimulationErrors *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
}

// New builds and registers a fresh collector set.
func New() *Registry {
	r := &Registry{
		ModbusRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcsim_modbus_requests_total",
			Help: "Total Modbus requests handled, by function code.",
		}, []string{"function_code"}),
		ModbusExceptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcsim_modbus_exceptions_total",
			Help: "Total Modbus exception responses, by exception code.",
		}, []string{"exception_code"}),
		MemoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcsim_memory_operations_total",
			Help: "Total Memory Space operations, by section and operation.",
		}, []string{"section", "op"}),
		SimulationTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcsim_simulation_ticks_total",
			Help: "Total simulation ticks, by task id.",
		}, []string{"task"}),
		SimulationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plcsim_simulation_errors_total",
			Help: "Total simulation task terminations due to error, by task id.",
		}, []string{"task"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plcsim_request_duration_seconds",
			Help:    "Modbus request handling latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		r.ModbusRequests, r.ModbusExceptions, r.MemoryOps,
		r.SimulationTicks, r.SimulationErrors, r.RequestDuration,
	)

	return r
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
