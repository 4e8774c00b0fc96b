package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sizeBuckets cover graphs from a handful of vertices to tens of millions.
var sizeBuckets = prometheus.ExponentialBuckets(10, 10, 8)

func (r *Registry) initDispatchMetrics() {
	r.DispatchTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphpart_dispatch_total",
			Help: "Total number of dispatched operations by outcome",
		},
		[]string{"operation", "status"},
	)

	r.DispatchDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphpart_dispatch_duration_seconds",
			Help:    "Time spent converting and running an operation",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"operation", "engine"},
	)

	r.DispatchVertices = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphpart_dispatch_vertices",
			Help:    "Vertex count of dispatched graphs",
			Buckets: sizeBuckets,
		},
		[]string{"operation"},
	)

	r.DispatchArcs = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphpart_dispatch_arcs",
			Help:    "Adjacency entry count of dispatched graphs",
			Buckets: sizeBuckets,
		},
		[]string{"operation"},
	)

	r.DispatchEdgeCut = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphpart_partition_edgecut",
			Help:    "Edge cut reported by partitioning operations",
			Buckets: sizeBuckets,
		},
		[]string{"operation"},
	)

	r.EngineErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphpart_engine_errors_total",
			Help: "Engine calls that returned a non-OK status",
		},
		[]string{"engine", "status"},
	)

	r.DispatchesInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphpart_dispatches_in_flight",
			Help: "Operations currently running",
		},
	)
}
