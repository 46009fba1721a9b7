// README: Prometheus collectors for channel and action health.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReconnectAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "valetlink_reconnect_attempts_total",
		Help: "Channel dial attempts after the initial connect.",
	})

	InboundEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "valetlink_inbound_events_total",
		Help: "Server-pushed events received on the channel.",
	}, []string{"event"})

	ActionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "valetlink_actions_total",
		Help: "Worker-initiated actions by outcome.",
	}, []string{"action", "outcome"})

	LocationUpdatesDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "valetlink_location_updates_dropped_total",
		Help: "Outbound location reports dropped by the rate limiter.",
	})

	ConnectionState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "valetlink_connection_state",
		Help: "0 disconnected, 1 connecting, 2 connected.",
	})
)

func init() {
	prometheus.MustRegister(
		ReconnectAttempts,
		InboundEvents,
		ActionOutcomes,
		LocationUpdatesDropped,
		ConnectionState,
	)
}
