// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbot_webhook_events_total",
		Help: "Webhook changes accepted for processing, by field.",
	}, []string{"field"})

	DroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbot_dropped_events_total",
		Help: "Webhook events dropped without processing, by reason.",
	}, []string{"reason"})

	OutboundCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbot_outbound_calls_total",
		Help: "Calls to external platforms, by platform, operation and result.",
	}, []string{"platform", "op", "result"})

	AdminUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentbot_admin_updates_total",
		Help: "Telegram admin updates received, by kind.",
	}, []string{"kind"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "commentbot_dispatch_queue_depth",
		Help: "Jobs waiting in the dispatch queue.",
	})
)

// ObserveOutbound counts one external call.
func ObserveOutbound(platform, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	OutboundCalls.WithLabelValues(platform, op, result).Inc()
}
