// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssistantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_requests_total",
			Help: "Total number of assistant requests by entry point and outcome",
		},
		[]string{"entry", "outcome"},
	)

	AssistantStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	AssistantFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_fallback_total",
			Help: "Number of times a stage fell back to its deterministic default",
		},
		[]string{"stage", "reason"},
	)

	AssistantAuthorizationDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_authorization_denied_total",
			Help: "Operations rejected before store access",
		},
		[]string{"collection", "kind"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)
)
