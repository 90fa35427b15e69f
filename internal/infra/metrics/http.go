package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(httpDuration) }

var httpDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "video_analyzer_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// ObserveHTTP records one request. route must be the pattern, not the raw
// path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, seconds float64) {
	httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(seconds)
}
