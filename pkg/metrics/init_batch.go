package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBatchMetrics() {
	r.BatchJobsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphpart_batch_jobs_total",
			Help: "Batch jobs processed by outcome",
		},
		[]string{"status"},
	)

	r.BatchQueueDepth = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphpart_batch_queue_depth",
			Help: "Jobs submitted but not yet picked up by a worker",
		},
	)

	r.BatchWorkersTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphpart_batch_workers",
			Help: "Number of batch workers",
		},
	)
}
