package resilience

import (
	"sync"
)

// ServiceHealthTracker maintains the sliding window of outcomes for a
// single external service (e.g. "firecrawl", "llm:openai") and classifies
// its current HealthStatus per the design's health-status rules:
//
//	down     if consecutive_failures >= 3 OR windowed error-rate > 0.75
//	degraded if consecutive_failures > 0  OR windowed error-rate > 0.25
//	healthy  otherwise
//
// The window holds at most the last 100 recorded outcomes; a success
// resets consecutive_failures to zero immediately (it does not wait for
// the window to roll over).
type ServiceHealthTracker struct {
	mu sync.Mutex

	name                string
	window              []bool // true = success, oldest first
	windowSize          int
	consecutiveFailures int
}

// NewServiceHealthTracker creates a tracker for name with the design's
// documented window size of 100 outcomes.
func NewServiceHealthTracker(name string) *ServiceHealthTracker {
	return &ServiceHealthTracker{
		name:       name,
		windowSize: 100,
	}
}

// RecordSuccess records a successful call outcome.
func (t *ServiceHealthTracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures = 0
	t.push(true)
}

// RecordFailure records a failed call outcome (including a timed-out
// attempt, which counts as a failure per the design).
func (t *ServiceHealthTracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures++
	t.push(false)
}

func (t *ServiceHealthTracker) push(success bool) {
	t.window = append(t.window, success)
	if len(t.window) > t.windowSize {
		t.window = t.window[len(t.window)-t.windowSize:]
	}
}

// ErrorRate returns the fraction of failures in the current window.
func (t *ServiceHealthTracker) ErrorRate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.errorRateLocked()
}

func (t *ServiceHealthTracker) errorRateLocked() float64 {
	if len(t.window) == 0 {
		return 0
	}
	failures := 0
	for _, ok := range t.window {
		if !ok {
			failures++
		}
	}
	return float64(failures) / float64(len(t.window))
}

// ConsecutiveFailures returns the current run of failures since the last
// success (or since creation).
func (t *ServiceHealthTracker) ConsecutiveFailures() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.consecutiveFailures
}

// Status classifies the current health per the design's rules.
func (t *ServiceHealthTracker) Status() HealthState {
	t.mu.Lock()
	defer t.mu.Unlock()

	errRate := t.errorRateLocked()
	switch {
	case t.consecutiveFailures >= 3 || errRate > 0.75:
		return HealthState{Name: t.name, Status: StatusDown, ConsecutiveFailures: t.consecutiveFailures, ErrorRate: errRate}
	case t.consecutiveFailures > 0 || errRate > 0.25:
		return HealthState{Name: t.name, Status: StatusDegraded, ConsecutiveFailures: t.consecutiveFailures, ErrorRate: errRate}
	default:
		return HealthState{Name: t.name, Status: StatusHealthy, ConsecutiveFailures: t.consecutiveFailures, ErrorRate: errRate}
	}
}

// Status enumerates the three classifications a service may be in.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// HealthState is a point-in-time snapshot of a service's health.
type HealthState struct {
	Name                string
	Status              Status
	ConsecutiveFailures int
	ErrorRate           float64
}

// HealthRegistry tracks one ServiceHealthTracker per named service and is
// the composition site's single source of truth for C1's per-service
// health tallies.
type HealthRegistry struct {
	mu       sync.Mutex
	trackers map[string]*ServiceHealthTracker
}

// NewHealthRegistry creates an empty registry.
func NewHealthRegistry() *HealthRegistry {
	return &HealthRegistry{trackers: make(map[string]*ServiceHealthTracker)}
}

// Tracker returns (creating if necessary) the tracker for name.
func (r *HealthRegistry) Tracker(name string) *ServiceHealthTracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[name]
	if !ok {
		t = NewServiceHealthTracker(name)
		r.trackers[name] = t
	}
	return t
}

// Snapshot returns the current HealthState for every tracked service.
func (r *HealthRegistry) Snapshot() []HealthState {
	r.mu.Lock()
	names := make([]string, 0, len(r.trackers))
	for name := range r.trackers {
		names = append(names, name)
	}
	r.mu.Unlock()

	states := make([]HealthState, 0, len(names))
	for _, name := range names {
		states = append(states, r.Tracker(name).Status())
	}
	return states
}
