package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formplugins_submissions_accepted_total",
		Help: "Total number of submissions stored, labelled by form slug.",
	}, []string{"form"})

	SubmissionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formplugins_submissions_rejected_total",
		Help: "Total number of submissions refused, labelled by form slug and reason.",
	}, []string{"form", "reason"})

	FieldsHidden = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formplugins_fields_hidden_total",
		Help: "Total number of fields left out of the enabled set on submit.",
	}, []string{"form"})

	RuleLeafErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formplugins_rule_leaf_errors_total",
		Help: "Total number of rule comparisons that failed and evaluated to false, labelled by field kind.",
	}, []string{"kind"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formplugins_actions_executed_total",
		Help: "Total number of post-submission actions executed, labelled by type and status.",
	}, []string{"action_type", "status"})

	ActionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formplugins_actions_dropped_total",
		Help: "Total number of actions rejected due to a full queue.",
	})

	TokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "formplugins_tokens_swept_total",
		Help: "Total number of expired validation tokens removed.",
	})

	SubmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "formplugins_submit_duration_ms",
		Help:    "Submission processing latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "formplugins_queue_utilization_ratio",
		Help: "Current action queue utilization (0–1).",
	})
)
