package health

import (
	"context"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-graphpart/pkg/csr"
	"github.com/dd0wney/cluso-graphpart/pkg/engine"
)

// probeGraph is a 4-cycle: small enough to partition in microseconds on
// any engine.
var probeGraph = &csr.Graph{
	N:      4,
	Xadj:   []int{0, 2, 4, 6, 8},
	Adjncy: []int{1, 3, 0, 2, 1, 3, 0, 2},
	Vwgt:   []int{1, 1, 1, 1},
	Adjwgt: []int{1, 1, 1, 1, 1, 1, 1, 1},
}

// EngineCheck bisects a tiny graph with e. A slow answer degrades.
func EngineCheck(e engine.Engine, timeout time.Duration) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "engine",
			Details: map[string]any{"engine": e.Name()},
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		res, err := e.PartGraphKway(ctx, probeGraph, 1, 2, engine.NewOptions(engine.SeedUnset))
		elapsed := time.Since(start)
		check.Details["probe_ms"] = elapsed.Milliseconds()

		switch {
		case err != nil:
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		case len(res.Part) != probeGraph.N:
			check.Status = StatusUnhealthy
			check.Message = "engine returned a malformed partition"
		case elapsed > timeout/2:
			check.Status = StatusDegraded
			check.Message = "engine responding slowly"
		default:
			check.Status = StatusHealthy
			check.Message = "engine responding"
		}
		return check
	}
}

// DrainCheck is unhealthy once shuttingDown reports true, so load
// balancers stop routing before the listener closes.
func DrainCheck(shuttingDown func() bool) CheckFunc {
	return func() Check {
		if shuttingDown() {
			return Check{Name: "drain", Status: StatusUnhealthy, Message: "shutting down"}
		}
		return Check{Name: "drain", Status: StatusHealthy}
	}
}

// MemoryCheck degrades when the heap uses more than 90% of memory
// obtained from the OS.
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func() Check {
		alloc, sys := getUsage()
		check := Check{
			Name: "memory",
			Details: map[string]any{
				"alloc_bytes": alloc,
				"sys_bytes":   sys,
			},
			Status:  StatusHealthy,
			Message: "Memory usage normal",
		}
		if sys > 0 && float64(alloc)/float64(sys) > 0.9 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		}
		return check
	}
}

// RuntimeMemory reads the Go runtime's heap and system memory.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
