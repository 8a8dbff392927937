// Package health aggregates liveness checks for the API's backing services.
package health

import (
	"context"
	"sync"
)

// Status is the outcome of a single subsystem check.
type Status struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Detail  string `json:"detail,omitempty"`
}

// Checker probes one subsystem and reports its status.
type Checker func(ctx context.Context) Status

// Registry collects named checkers and runs them together.
type Registry struct {
	mu     sync.RWMutex
	checks []registered
}

type registered struct {
	name string
	fn   Checker
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a checker under the given name. Checkers run in
// registration order.
func (r *Registry) Register(name string, fn Checker) {
	r.mu.Lock()
	r.checks = append(r.checks, registered{name: name, fn: fn})
	r.mu.Unlock()
}

// CheckAll runs every registered checker. The aggregate is healthy only
// when every subsystem reports healthy.
func (r *Registry) CheckAll(ctx context.Context) (bool, []Status) {
	r.mu.RLock()
	checks := make([]registered, len(r.checks))
	copy(checks, r.checks)
	r.mu.RUnlock()

	healthy := true
	statuses := make([]Status, len(checks))
	for i, c := range checks {
		statuses[i] = c.fn(ctx)
		if !statuses[i].Healthy {
			healthy = false
		}
	}

	return healthy, statuses
}
