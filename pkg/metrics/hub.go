package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HubMetrics records connection and fan-out activity for the realtime hub.
type HubMetrics struct {
	connections *prometheus.GaugeVec
	broadcasts  *prometheus.CounterVec
	dropped     prometheus.Counter
}

// NewHubMetrics registers the hub metrics on the provided registerer.
func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	if reg == nil {
		return &HubMetrics{}
	}
	connections := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hub_active_connections",
		Help: "Live websocket connections per session.",
	}, []string{"session"})
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hub_broadcast_events_total",
		Help: "Events fanned out to session connections.",
	}, []string{"event"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hub_dropped_connections_total",
		Help: "Connections reaped after a failed delivery.",
	})
	reg.MustRegister(connections, broadcasts, dropped)
	return &HubMetrics{
		connections: connections,
		broadcasts:  broadcasts,
		dropped:     dropped,
	}
}

// SetConnections records the live connection count for a session.
func (h *HubMetrics) SetConnections(sessionID string, count int) {
	if h == nil || h.connections == nil {
		return
	}
	h.connections.WithLabelValues(sessionID).Set(float64(count))
}

// ForgetSession drops the gauge series once a session has no connections.
func (h *HubMetrics) ForgetSession(sessionID string) {
	if h == nil || h.connections == nil {
		return
	}
	h.connections.DeleteLabelValues(sessionID)
}

// IncBroadcast counts one fan-out of the named event type.
func (h *HubMetrics) IncBroadcast(event string) {
	if h == nil || h.broadcasts == nil {
		return
	}
	h.broadcasts.WithLabelValues(event).Inc()
}

// IncDropped counts a connection removed after a delivery failure.
func (h *HubMetrics) IncDropped() {
	if h == nil || h.dropped == nil {
		return
	}
	h.dropped.Inc()
}
