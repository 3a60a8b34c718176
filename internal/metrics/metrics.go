package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueryRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "text2img_query_requests_total",
		Help: "Total number of query requests received",
	})

	QueryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "text2img_query_errors_total",
		Help: "Query requests that failed, by kind",
	}, []string{"kind"})

	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "text2img_query_duration_seconds",
		Help:    "Time taken to embed the query and search the index",
		Buckets: prometheus.DefBuckets,
	})

	ImageRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "text2img_image_requests_total",
		Help: "Total number of image retrieval requests received",
	})

	InflightQueries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "text2img_inflight_queries",
		Help: "Query requests currently holding a worker slot",
	})
)
