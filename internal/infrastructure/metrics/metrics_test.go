package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestConversationMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewConversationMetrics(reg)

	m.ObserveInbound("greeting", "ok")
	m.ObserveInbound("greeting", "ok")
	m.ObserveOutbound("template", nil)
	m.ObserveOutbound("list", errors.New("boom"))
	m.ObserveAppointment("scheduled")
	m.ObserveWebhookLatency("greeting", 0.2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inboundTotal.WithLabelValues("greeting", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboundTotal.WithLabelValues("template", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboundTotal.WithLabelValues("list", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bookingsTotal.WithLabelValues("scheduled")))
}

func TestConversationMetricsNilSafe(t *testing.T) {
	var m *ConversationMetrics
	m.ObserveInbound("intent", "ok")
	m.ObserveOutbound("text", nil)
	m.ObserveAppointment("cancelled")
	m.ObserveWebhookLatency("intent", 0.1)
}
