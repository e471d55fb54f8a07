// Package metrics holds the HTTP metrics of the viewer and exposes the
// Prometheus registry. Store, cache and viewer metrics are defined in
// their own packages (chroma, cache, viewer) and registered via promauto.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the viewer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

var (
	// HTTPRequests counts served requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chroma_viewer_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"route", "status"})

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chroma_viewer_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// ObserveRequest records one finished request.
// An empty route is reported as "unmatched".
func ObserveRequest(route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// Handler serves the default gatherer in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// HTTP Metrics (pkg/metrics):
//   - chroma_viewer_http_requests_total{route, status} (Counter): Requests by route pattern and status
//   - chroma_viewer_http_request_duration_seconds{route} (Histogram): Request duration by route pattern
//
// Viewer Metrics (pkg/viewer):
//   - chroma_viewer_collections_listed_total (Counter): Collection listings served
//   - chroma_viewer_collection_count_errors_total (Counter): Per-collection count failures
//   - chroma_viewer_page_requests_total{result} (Counter): Page requests by result (ok, not_found, retrieval)
//   - chroma_viewer_connections_total{result} (Counter): Connect attempts by result (ok, invalid, failed)
//   - chroma_viewer_connected (Gauge): 1 while a store is attached
//
// Store Metrics (pkg/chroma):
//   - chroma_store_queries_total{op, status} (Counter): SQLite queries by operation and status
//   - chroma_store_query_duration_seconds{op} (Histogram): Query duration by operation
//
// Cache Metrics (pkg/cache):
//   - chroma_viewer_cache_hits_total (Counter): Collection fetches served from Redis
//   - chroma_viewer_cache_misses_total (Counter): Collection fetches not in Redis
//   - chroma_viewer_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(chroma_viewer_cache_hits_total[5m])) /
//   (sum(rate(chroma_viewer_cache_hits_total[5m])) + sum(rate(chroma_viewer_cache_misses_total[5m])))
//
//   # Server Error Rate
//   sum(rate(chroma_viewer_http_requests_total{status=~"5.."}[5m]))
//
//   # P95 Page Latency
//   histogram_quantile(0.95, rate(chroma_viewer_http_request_duration_seconds_bucket{route="GET /api/collection/{name}/documents"}[5m]))
