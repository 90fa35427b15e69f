package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		jobsProcessedTotal,
		stageDurationSeconds,
		stageDegradedTotal,
		acquireAttemptsTotal,
		queueRejectedTotal,
		jobsReconciledTotal,
	)
}

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_jobs_processed_total",
			Help: "Total number of analysis jobs that reached a terminal state, labeled by status.",
		},
		[]string{"status"}, // 'completed', 'failed'
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "video_stage_duration_seconds",
			Help:    "Pipeline stage latency in seconds.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage", "outcome"},
	)

	stageDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_stage_degraded_total",
			Help: "Best-effort stages that failed without failing the job.",
		},
		[]string{"stage"},
	)

	acquireAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_acquire_attempts_total",
			Help: "Media download attempts, labeled by outcome.",
		},
		[]string{"outcome"}, // 'ok', 'retry', 'permanent'
	)

	queueRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_queue_rejected_total",
			Help: "Jobs that could not be queued because the worker queue was full.",
		},
	)

	jobsReconciledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_jobs_reconciled_total",
			Help: "Stale jobs handled by the reconciler, labeled by action.",
		},
		[]string{"action"}, // 'requeued', 'interrupted'
	)
)

func IncJob(status string) {
	jobsProcessedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveStage(stage, outcome string, seconds float64) {
	stageDurationSeconds.WithLabelValues(norm(stage), norm(outcome)).Observe(seconds)
}

func IncStageDegraded(stage string) {
	stageDegradedTotal.WithLabelValues(norm(stage)).Inc()
}

func IncAcquireAttempt(outcome string) {
	acquireAttemptsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncQueueRejected() {
	queueRejectedTotal.Inc()
}

func IncReconciled(action string, n int) {
	jobsReconciledTotal.WithLabelValues(norm(action)).Add(float64(n))
}
