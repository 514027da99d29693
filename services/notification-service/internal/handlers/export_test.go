package handlers

import "github.com/prometheus/client_golang/prometheus"

func EmailsCounter(m *Metrics, event, status string) prometheus.Collector {
	return m.emails.WithLabelValues(event, status)
}
