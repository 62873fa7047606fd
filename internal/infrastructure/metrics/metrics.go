package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the booking conversation.
type ConversationMetrics struct {
	inboundTotal   *prometheus.CounterVec
	outboundTotal  *prometheus.CounterVec
	bookingsTotal  *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "conversation",
			Name:      "inbound_events_total",
			Help:      "Total inbound webhook events by classified intent",
		}, []string{"intent", "outcome"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "conversation",
			Name:      "outbound_messages_total",
			Help:      "Total outbound messages by kind",
		}, []string{"kind", "status"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Appointment state changes",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "conversation",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook processing",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.outboundTotal, m.bookingsTotal, m.webhookLatency)
	return m
}

func (m *ConversationMetrics) ObserveInbound(intent, outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(intent, outcome).Inc()
}

func (m *ConversationMetrics) ObserveOutbound(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.outboundTotal.WithLabelValues(kind, status).Inc()
}

func (m *ConversationMetrics) ObserveAppointment(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *ConversationMetrics) ObserveWebhookLatency(intent string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(intent).Observe(seconds)
}
