package viewer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for viewer operations.
var (
	collectionsListedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chroma_viewer_collections_listed_total",
		Help: "Total number of collection listings served",
	})

	collectionCountErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chroma_viewer_collection_count_errors_total",
		Help: "Total number of per-collection count failures during listings",
	})

	pageRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chroma_viewer_page_requests_total",
		Help: "Total document page requests by result",
	}, []string{"result"})

	connectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chroma_viewer_connections_total",
		Help: "Total store connection attempts by result",
	}, []string{"result"})

	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chroma_viewer_connected",
		Help: "1 when a Chroma store is attached, 0 otherwise",
	})
)
