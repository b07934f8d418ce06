// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of tasks completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of tasks failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of task processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of in-flight tasks per worker",
		},
		[]string{"task_type"},
	)

	OnboardingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_transitions_total",
			Help: "Committed onboarding status transitions",
		},
		[]string{"from", "to"},
	)

	OnboardingGuardFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "onboarding_guard_failures_total",
			Help: "Rejected onboarding transition requests by error code",
		},
		[]string{"code"},
	)

	ExternalSyncAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "external_sync_attempts_total",
			Help: "Remote identity calls by operation and outcome",
		},
		[]string{"operation", "status"},
	)
)
