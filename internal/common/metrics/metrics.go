package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_status_transitions_total",
			Help: "Total number of successful status transitions",
		},
		[]string{"from", "to"},
	)

	TransitionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_transition_failures_total",
			Help: "Total number of rejected status-change requests",
		},
		[]string{"code"},
	)

	ScoresComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_scores_computed_total",
			Help: "Total number of eligibility scores computed",
		},
	)

	DraftsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lifecycle_drafts_expired_total",
			Help: "Total number of stale drafts withdrawn by the sweep",
		},
	)

	NotificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_notification_attempts_total",
			Help: "Notification delivery attempts by outcome",
		},
		[]string{"type", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "lifecycle_operation_duration_seconds",
			Help: "Duration of lifecycle engine operations in seconds",
		},
		[]string{"operation"},
	)
)
