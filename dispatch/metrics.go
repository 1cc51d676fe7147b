package dispatch

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds the Dispatcher's Prometheus instrumentation. Each Dispatcher owns its own
// registry so tests can construct as many Dispatchers as they like without hitting Prometheus's
// global "duplicate metrics collector registration" panic.
type metrics struct {
	registry       *prometheus.Registry
	submitTotal    *prometheus.CounterVec
	preemptTotal   prometheus.Counter
	invokeDuration prometheus.Histogram
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		submitTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voltbridge_dispatch_submit_total",
			Help: "Commands submitted to the dispatcher, by shape and outcome return code.",
		}, []string{"shape", "rc"}),
		preemptTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voltbridge_dispatch_preemption_total",
			Help: "Times a running ramp was preempted by a submit or by shutdown.",
		}),
		invokeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voltbridge_device_invocation_duration_seconds",
			Help:    "Wall-clock duration of device tool invocations.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
	}
	m.registry.MustRegister(m.submitTotal, m.preemptTotal, m.invokeDuration)
	return m
}

func (m *metrics) observeInvocation(elapsedSeconds float64) {
	m.invokeDuration.Observe(elapsedSeconds)
}

func (m *metrics) observeSubmit(shape string, rc int) {
	m.submitTotal.WithLabelValues(shape, strconv.Itoa(rc)).Inc()
}

func (m *metrics) observePreemption() {
	m.preemptTotal.Inc()
}

// Registry exposes the Dispatcher's Prometheus registry so a caller can merge it into a process
// wide /metrics handler.
func (d *Dispatcher) Registry() *prometheus.Registry {
	return d.metrics.registry
}
