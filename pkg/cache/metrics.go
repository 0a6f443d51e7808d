package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheRefreshTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clustermap_cache_refresh_total",
		Help: "Total number of cluster snapshot collections by status",
	},
	[]string{"status"},
)
