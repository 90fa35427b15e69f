package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(buildInfo, dbPool, cacheRequests, queueDepth, lockContention, workerPanics)
}

var (
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_analyzer_build_info",
			Help: "Constant 1, labelled with version and commit.",
		},
		[]string{"version", "commit"},
	)
	dbPool = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "video_analyzer_db_pool_conns",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total|idle|in_use
	)
	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_analyzer_cache_requests_total",
			Help: "Job cache lookups by result.",
		},
		[]string{"cache", "result"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "video_analyzer_queue_depth",
			Help: "Jobs waiting in the in-process queue.",
		},
	)
	lockContention = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "video_analyzer_job_lock_contention_total",
			Help: "Dispatches skipped because another worker held the job lock.",
		},
	)
	workerPanics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "video_analyzer_worker_panics_total",
			Help: "Tasks that panicked inside a worker.",
		},
	)
)

func SetBuildInfo(version, commit string) {
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func SetDBPoolStats(total, idle, inUse int32) {
	dbPool.WithLabelValues("total").Set(float64(total))
	dbPool.WithLabelValues("idle").Set(float64(idle))
	dbPool.WithLabelValues("in_use").Set(float64(inUse))
}

func IncCacheRequest(cacheName, result string) {
	cacheRequests.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

func SetQueueDepth(n int) { queueDepth.Set(float64(n)) }

func IncLockContention() { lockContention.Inc() }

func IncWorkerPanic() { workerPanics.Inc() }
