package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's counters. Everything is registered against the
// given registerer so tests can use an isolated registry.
type Metrics struct {
	ConnectionsActive prometheus.Gauge
	MessagesPersisted prometheus.Counter
	EventsDelivered   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	AIReplies         *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "converse_connections_active",
			Help: "Registered WebSocket connections.",
		}),
		MessagesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "converse_messages_persisted_total",
			Help: "Messages written to the store.",
		}),
		EventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "converse_events_delivered_total",
			Help: "Events delivered to live connections.",
		}, []string{"event"}),
		EventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "converse_events_dropped_total",
			Help: "Events dropped because the target was offline or slow.",
		}),
		AIReplies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "converse_ai_replies_total",
			Help: "AI reply attempts by result.",
		}, []string{"result"}),
	}
}

func ProvideMetrics() *Metrics {
	return New(prometheus.DefaultRegisterer)
}
