package metric

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yndnr/respd-go/internal/dispatch"
)

const namespace = "respd"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// Connection metrics
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	ProtocolErrors    prometheus.Counter
	ThrottledCommands prometheus.Counter
	RateLimited       prometheus.Counter

	// Plain counters mirrored for INFO, which must not scrape the registry.
	activeConns atomic.Int64
	totalConns  atomic.Int64
	totalCmds   atomic.Int64
}

// PoolStats is the worker pool view exported as gauges.
type PoolStats interface {
	Size() int
	Busy() int
	QueueDepth() int
	QueueCapacity() int
	Completed() uint64
	Panics() uint64
}

// NewRegistry creates a registry with the Go and process collectors and
// all respd metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Commands dispatched, by command and outcome.",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Command execution time.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"command"}),
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
			Help:      "Connections closed because of malformed input.",
		}),
		ThrottledCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "throttled_commands_total",
			Help:      "Commands delayed by the configured command delay.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per client rate limit.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.CommandsTotal,
		r.CommandDuration,
		r.ConnectionsActive,
		r.ConnectionsTotal,
		r.ProtocolErrors,
		r.ThrottledCommands,
		r.RateLimited,
	)
	return r
}

// Registerer returns the underlying registerer for components that export
// their own metrics.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveCommand implements dispatch.Recorder.
func (r *Registry) ObserveCommand(name string, status dispatch.Status, elapsed time.Duration) {
	r.totalCmds.Add(1)
	r.CommandsTotal.WithLabelValues(name, status.String()).Inc()
	r.CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	r.activeConns.Add(1)
	r.totalConns.Add(1)
	r.ConnectionsActive.Inc()
	r.ConnectionsTotal.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	r.activeConns.Add(-1)
	r.ConnectionsActive.Dec()
}

// ProtocolError records a connection dropped for malformed input.
func (r *Registry) ProtocolError() {
	r.ProtocolErrors.Inc()
}

// Throttled records a delayed command.
func (r *Registry) Throttled() {
	r.ThrottledCommands.Inc()
}

// RateLimit records a command rejected by the rate limiter.
func (r *Registry) RateLimit() {
	r.RateLimited.Inc()
}

// ConnectedClients returns the number of open connections.
func (r *Registry) ConnectedClients() int64 {
	return r.activeConns.Load()
}

// TotalConnections returns the number of accepted connections.
func (r *Registry) TotalConnections() int64 {
	return r.totalConns.Load()
}

// TotalCommands returns the number of dispatched commands.
func (r *Registry) TotalCommands() int64 {
	return r.totalCmds.Load()
}

// RegisterPool exports worker pool gauges read on every scrape.
func (r *Registry) RegisterPool(p PoolStats) error {
	gauge := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		}, fn)
	}
	counter := func(name, help string, fn func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		}, fn)
	}

	cs := []prometheus.Collector{
		gauge("workers", "Worker goroutines.", func() float64 { return float64(p.Size()) }),
		gauge("busy_workers", "Workers running a task.", func() float64 { return float64(p.Busy()) }),
		gauge("queue_depth", "Tasks waiting in the queue.", func() float64 { return float64(p.QueueDepth()) }),
		gauge("queue_capacity", "Task queue capacity.", func() float64 { return float64(p.QueueCapacity()) }),
		counter("tasks_completed_total", "Tasks run to completion.", func() float64 { return float64(p.Completed()) }),
		counter("task_panics_total", "Tasks that panicked.", func() float64 { return float64(p.Panics()) }),
	}
	for _, c := range cs {
		if err := r.reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

var _ dispatch.Recorder = (*Registry)(nil)
