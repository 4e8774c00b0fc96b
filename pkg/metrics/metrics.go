package metrics

import (
	"runtime"
	"time"
)

// Dispatch outcome labels.
const (
	StatusOK     = "ok"
	StatusUsage  = "usage_error"
	StatusEngine = "engine_error"
)

// RecordDispatch records one dispatched operation.
func (r *Registry) RecordDispatch(operation, engine, status string, duration time.Duration, vertices, arcs int) {
	r.DispatchTotal.WithLabelValues(operation, status).Inc()
	r.DispatchDuration.WithLabelValues(operation, engine).Observe(duration.Seconds())
	r.DispatchVertices.WithLabelValues(operation).Observe(float64(vertices))
	r.DispatchArcs.WithLabelValues(operation).Observe(float64(arcs))
}

// RecordEdgeCut records the cut of a successful partition.
func (r *Registry) RecordEdgeCut(operation string, cut int) {
	r.DispatchEdgeCut.WithLabelValues(operation).Observe(float64(cut))
}

// RecordEngineError counts an engine failure by status name.
func (r *Registry) RecordEngineError(engine, status string) {
	r.EngineErrorsTotal.WithLabelValues(engine, status).Inc()
}

// RecordBatchJob counts a finished batch job.
func (r *Registry) RecordBatchJob(status string) {
	r.BatchJobsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordTransportMessage counts one socket request by answer code.
func (r *Registry) RecordTransportMessage(status string) {
	r.TransportMessagesTotal.WithLabelValues(status).Inc()
}

// UpdateSystemMetrics samples uptime and Go runtime statistics.
func (r *Registry) UpdateSystemMetrics(start time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.UptimeSeconds.Set(time.Since(start).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.MemoryAllocBytes.Set(float64(m.Alloc))
	r.MemorySysBytes.Set(float64(m.Sys))
}
