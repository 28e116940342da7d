package health

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"fabula/internal/services"
)

// Status is the availability verdict for one external service.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusDegraded    Status = "degraded"
	StatusUnavailable Status = "unavailable"
)

// Thresholds for the rolling error rate.
const (
	errorRateStep        = 0.1
	unavailableErrorRate = 0.8
	degradedErrorRate    = 0.3
)

// ServiceStatus is the live health record for one service name.
type ServiceStatus struct {
	Name      string
	Status    Status
	LastCheck time.Time
	ErrorRate float64
}

// Degradation summarizes overall service health across the tracker.
type Degradation string

const (
	DegradationNone    Degradation = "none"
	DegradationPartial Degradation = "partial"
	DegradationSevere  Degradation = "severe"
)

// Services whose absence the pipeline cannot work around. Skippable services
// degrade to a missing asset instead of a fatal error.
var criticalServices = map[string]bool{
	"video": true,
}

// Tracker maintains per-service health records. Safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	now  func() time.Time
	data map[string]*ServiceStatus
}

// NewTracker constructs an empty health tracker.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now, data: make(map[string]*ServiceStatus)}
}

// WithClock overrides the tracker clock. Used in tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
	return t
}

// RecordFailure bumps the rolling error rate for the named service and
// escalates the verdict. An explicit unavailable-class error forces the
// unavailable status regardless of rate; rate alone never marks a critical
// service unavailable.
func (t *Tracker) RecordFailure(service string, err error) Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	status := t.ensure(service)
	// Keep the rate on exact tenths so threshold comparisons stay stable.
	status.ErrorRate = math.Round((status.ErrorRate+errorRateStep)*10) / 10
	if status.ErrorRate > 1.0 {
		status.ErrorRate = 1.0
	}
	status.LastCheck = t.now()

	switch {
	case services.Unavailable(err):
		status.Status = StatusUnavailable
	case status.ErrorRate > unavailableErrorRate && !criticalServices[service]:
		status.Status = StatusUnavailable
	case status.ErrorRate > degradedErrorRate:
		status.Status = StatusDegraded
	default:
		status.Status = StatusAvailable
	}
	return status.Status
}

// RecordSuccess refreshes the last-check timestamp without decaying the rate.
// Recovery from degradation requires an explicit Reset.
func (t *Tracker) RecordSuccess(service string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status := t.ensure(service)
	status.LastCheck = t.now()
}

// Reset clears the health record for one service.
func (t *Tracker) Reset(service string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.data, service)
}

// Verdict returns the current availability verdict for the named service.
// Unknown services are available.
func (t *Tracker) Verdict(service string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if status, ok := t.data[service]; ok {
		return status.Status
	}
	return StatusAvailable
}

// Gate reports whether work against the named service should proceed.
// Degraded services proceed in reduced mode. Unavailable critical services
// return an error; unavailable skippable services return proceed=false.
func (t *Tracker) Gate(service string) (bool, error) {
	switch t.Verdict(service) {
	case StatusUnavailable:
		if criticalServices[service] {
			return false, services.Wrap(services.ErrUnavailable, "", service, fmt.Sprintf("%s service is unavailable and required", service), nil)
		}
		return false, nil
	default:
		return true, nil
	}
}

// Snapshot returns a copy of all known service records sorted by name.
func (t *Tracker) Snapshot() []ServiceStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ServiceStatus, 0, len(t.data))
	for _, status := range t.data {
		out = append(out, *status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Overall derives the aggregate degradation verdict from per-service counts.
func (t *Tracker) Overall() Degradation {
	t.mu.Lock()
	defer t.mu.Unlock()

	var unavailable, degraded int
	for _, status := range t.data {
		switch status.Status {
		case StatusUnavailable:
			unavailable++
		case StatusDegraded:
			degraded++
		}
	}

	switch {
	case unavailable > 0:
		return DegradationSevere
	case degraded > 0:
		return DegradationPartial
	default:
		return DegradationNone
	}
}

func (t *Tracker) ensure(service string) *ServiceStatus {
	status, ok := t.data[service]
	if !ok {
		status = &ServiceStatus{Name: service, Status: StatusAvailable}
		t.data[service] = status
	}
	return status
}
