package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements the Collector interface using Prometheus metrics.
type PrometheusCollector struct {
	acceptedTotal   prometheus.Counter
	droppedTotal    *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	addressesSwept  prometheus.Counter
	sessionsEvicted prometheus.Counter
}

// NewPrometheusCollector creates a new PrometheusCollector with all metrics registered.
//
// Parameters:
//   - reg: The Prometheus registerer to attach the metrics to
//
// Returns:
//   - A collector recording admission metrics to Prometheus
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	c := &PrometheusCollector{
		acceptedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_connections_accepted_total",
			Help: "Total number of connections admitted.",
		}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_connections_dropped_total",
			Help: "Total number of connections dropped before admission.",
		}, []string{"reason"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeeper_sessions_active",
			Help: "Number of currently registered sessions.",
		}),
		addressesSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_addresses_evicted_total",
			Help: "Total number of addresses removed by eviction sweeps.",
		}),
		sessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_sessions_evicted_total",
			Help: "Total number of sessions force-closed by eviction sweeps.",
		}),
	}

	reg.MustRegister(
		c.acceptedTotal,
		c.droppedTotal,
		c.sessionsActive,
		c.addressesSwept,
		c.sessionsEvicted,
	)

	return c
}

// ConnectionAccepted implements Collector.
func (c *PrometheusCollector) ConnectionAccepted() {
	c.acceptedTotal.Inc()
	c.sessionsActive.Inc()
}

// ConnectionDropped implements Collector.
func (c *PrometheusCollector) ConnectionDropped(reason string) {
	c.droppedTotal.WithLabelValues(reason).Inc()
}

// SessionClosed implements Collector.
func (c *PrometheusCollector) SessionClosed() {
	c.sessionsActive.Dec()
}

// AddressEvicted implements Collector.
func (c *PrometheusCollector) AddressEvicted(sessions int) {
	c.addressesSwept.Inc()
	c.sessionsEvicted.Add(float64(sessions))
	c.sessionsActive.Sub(float64(sessions))
}
