package handlers

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/md-rashed-zaman/loannotify/services/notification-service/internal/events"
)

type Metrics struct {
	received *prometheus.CounterVec
	emails   *prometheus.CounterVec
}

// NewMetrics registers the notification counters on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_events_received_total",
			Help: "Inbound events handed to a notification handler.",
		}, []string{"event"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_emails_total",
			Help: "Notification outcomes by event and status.",
		}, []string{"event", "status"}),
	}
	reg.MustRegister(m.received, m.emails)
	return m
}

func (m *Metrics) observeReceived(kind events.Kind) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) observeOutcome(o Outcome) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(string(o.Event), string(o.Status)).Inc()
}
