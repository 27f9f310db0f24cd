// Package metrics implements the optional Prometheus counters a Server
// may expose: packets/bytes sent and received, active connection count,
// and resource transfer backlog. The core never starts its own HTTP
// server; the caller registers Handler() wherever it already serves
// metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/gauge a connection or server updates.
type Metrics struct {
	registry *prometheus.Registry

	PacketsSent     prometheus.Counter
	PacketsReceived prometheus.Counter
	BytesSent       prometheus.Counter
	BytesReceived   prometheus.Counter

	ActiveConnections       prometheus.Gauge
	ResourceTransferBacklog prometheus.Gauge
}

// New creates a Metrics instance registered against its own private
// registry, so embedding this module never collides with a host
// application's default Prometheus registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		PacketsSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "tes_packets_sent_total",
			Help: "Total number of framed packets sent across all connections.",
		}),
		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "tes_packets_received_total",
			Help: "Total number of framed packets received across all connections.",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "tes_bytes_sent_total",
			Help: "Total number of bytes sent across all connections.",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "tes_bytes_received_total",
			Help: "Total number of bytes received across all connections.",
		}),
		ActiveConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tes_active_connections",
			Help: "Number of currently active connections.",
		}),
		ResourceTransferBacklog: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tes_resource_transfer_backlog",
			Help: "Number of mesh resources still awaiting a completed transfer.",
		}),
	}
}

// Handler returns an http.Handler serving this instance's metrics in the
// Prometheus exposition format, for the caller to mount at any path.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
