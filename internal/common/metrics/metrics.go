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

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	RoyaltyCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "royalty_calculations_total",
			Help: "Royalty calculations persisted, labeled by calculation method",
		},
		[]string{"method"},
	)

	RoyaltyFeesAmount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "royalty_fees_amount_total",
			Help: "Cumulative fee dollars assessed, labeled by fee type",
		},
		[]string{"fee_type"},
	)

	RoyaltyNoticesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "royalty_notices_sent_total",
			Help: "Royalty notices delivered, labeled by channel and status",
		},
		[]string{"channel", "status"},
	)
)
