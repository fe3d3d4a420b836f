package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectedSessions tracks the number of sessions currently connected.
	ConnectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "uartmon_connected_sessions",
		Help: "The number of sessions currently connected to a serial port",
	})

	// MessagesTotal counts messages accepted into any session's log.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uartmon_messages_total",
		Help: "The total number of messages accepted, by kind",
	}, []string{"kind"}) // sent, received, info, warning, error

	// TransportErrorsTotal counts failed bridge calls.
	TransportErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uartmon_transport_errors_total",
		Help: "The total number of failed bridge calls, by operation",
	}, []string{"op"}) // connect, disconnect, send, scan, stats, export

	// ReconnectsScheduled counts automatic reconnection attempts scheduled.
	ReconnectsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uartmon_reconnects_scheduled_total",
		Help: "The total number of automatic reconnection attempts scheduled",
	})
)

// MetricsHandler returns the HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// IncMessage increments the message counter for the given kind.
func IncMessage(kind string) {
	MessagesTotal.WithLabelValues(kind).Inc()
}

// IncTransportError increments the error counter for the given operation.
func IncTransportError(op string) {
	TransportErrorsTotal.WithLabelValues(op).Inc()
}

// IncReconnectScheduled increments the scheduled-reconnect counter.
func IncReconnectScheduled() {
	ReconnectsScheduled.Inc()
}
