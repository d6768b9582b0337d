// Package metrics wires session and RIB counters into a Prometheus
// registry (the DOMAIN STACK's observability dependency — spec names no
// metrics requirement directly, but the ambient stack carries one
// regardless of what spec's Non-goals exclude).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds every gauge/counter this speaker exposes, registered
// once against the Runtime's registry at startup.
type Metrics struct {
	SessionsEstablished prometheus.Counter
	SessionsClosed      prometheus.Counter
	SessionState        *prometheus.GaugeVec
	UpdatesSent         *prometheus.CounterVec
	UpdatesReceived     *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	NotificationsRecv   *prometheus.CounterVec
	AdjRIBOutSize       *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsEstablished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bgpd_sessions_established_total",
			Help: "Total number of BGP sessions that reached Established.",
		}),
		SessionsClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bgpd_sessions_closed_total",
			Help: "Total number of times a BGP session returned to Idle, including connection attempts that never reached Established.",
		}),
		SessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bgpd_session_state",
			Help: "Current FSM state per peer (0=idle .. 5=established).",
		}, []string{"peer"}),
		UpdatesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgpd_updates_sent_total",
			Help: "UPDATE messages sent, per peer.",
		}, []string{"peer"}),
		UpdatesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgpd_updates_received_total",
			Help: "UPDATE messages received, per peer.",
		}, []string{"peer"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgpd_notifications_sent_total",
			Help: "NOTIFICATION messages sent, per peer and code.",
		}, []string{"peer", "code"}),
		NotificationsRecv: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bgpd_notifications_received_total",
			Help: "NOTIFICATION messages received, per peer and code.",
		}, []string{"peer", "code"}),
		AdjRIBOutSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bgpd_adj_rib_out_size",
			Help: "Current Adj-RIB-Out route count, per peer.",
		}, []string{"peer"}),
	}

	reg.MustRegister(
		m.SessionsEstablished, m.SessionsClosed, m.SessionState,
		m.UpdatesSent, m.UpdatesReceived,
		m.NotificationsSent, m.NotificationsRecv, m.AdjRIBOutSize,
	)
	return m
}
