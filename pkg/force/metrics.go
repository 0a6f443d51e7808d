package force

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var simulationTicks = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "clustermap_simulation_ticks_total",
		Help: "Total number of force simulation steps",
	},
)
