// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GenerationAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwidget_generation_attempts_total",
			Help: "Generation API calls by result (ok, transport_failure, malformed_response, cancelled).",
		},
		[]string{"result"},
	)

	Replies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwidget_replies_total",
			Help: "Bot replies appended to conversations by outcome (generated, fallback, failed).",
		},
		[]string{"outcome"},
	)

	DiscardedReplies = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatwidget_discarded_replies_total",
			Help: "Replies that resolved after their session was cleared, ended or closed.",
		},
	)

	IdleReminders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatwidget_idle_reminders_total",
			Help: "Idle reminder messages sent.",
		},
	)

	PersistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatwidget_persistence_failures_total",
			Help: "History store operations that failed, by operation.",
		},
		[]string{"op"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatwidget_active_sessions",
			Help: "Widget sessions currently held by the host.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		GenerationAttempts,
		Replies,
		DiscardedReplies,
		IdleReminders,
		PersistenceFailures,
		ActiveSessions,
	)
}
