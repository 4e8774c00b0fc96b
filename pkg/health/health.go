// Package health reports liveness and readiness of the graphpart server.
package health

import (
	"sort"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check is the result of probing one component.
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ms"`
}

// CheckFunc performs a health check.
type CheckFunc func() Check

// Response is the aggregated result of a set of checks.
type Response struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}

// Kind selects which set of checks runs.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Checker holds the registered liveness and readiness checks.
type Checker struct {
	mu      sync.RWMutex
	started time.Time
	checks  map[Kind]map[string]CheckFunc
}

// NewChecker creates a checker; uptime counts from now.
func NewChecker() *Checker {
	return &Checker{
		started: time.Now(),
		checks: map[Kind]map[string]CheckFunc{
			Liveness:  {},
			Readiness: {},
		},
	}
}

// Register adds a check of the given kind, replacing one with the same name.
func (c *Checker) Register(kind Kind, name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[kind][name] = fn
}

// Run executes every check of kind. The worst status wins.
func (c *Checker) Run(kind Kind) Response {
	c.mu.RLock()
	fns := make(map[string]CheckFunc, len(c.checks[kind]))
	names := make([]string, 0, len(c.checks[kind]))
	for name, fn := range c.checks[kind] {
		fns[name] = fn
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	resp := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check, len(names)),
		Uptime:    time.Since(c.started).Seconds(),
	}
	for _, name := range names {
		start := time.Now()
		check := fns[name]()
		check.Duration = time.Since(start)
		check.LastChecked = start
		if check.Name == "" {
			check.Name = name
		}
		resp.Checks[name] = check
		resp.Status = worse(resp.Status, check.Status)
	}
	return resp
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
