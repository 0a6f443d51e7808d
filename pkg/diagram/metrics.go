package diagram

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clustermap_render_duration_seconds",
			Help:    "Time taken to lay out and draw a cluster diagram",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"mode"},
	)

	renderTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clustermap_render_total",
			Help: "Total number of cluster diagram renders",
		},
		[]string{"mode"},
	)
)
