package health

import (
	"time"
)

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks: make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a health check
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// Check performs all health checks
func (hc *HealthChecker) Check() Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	response := Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check),
	}

	for name, checkFunc := range hc.checks {
		start := time.Now()
		check := checkFunc()
		check.Duration = time.Since(start)
		check.LastChecked = start

		response.Checks[name] = check

		// Determine overall status (worst status wins)
		if severity(check.Status) > severity(response.Status) {
			response.Status = check.Status
		}
	}

	return response
}

func severity(s Status) int {
	switch s {
	case StatusHealthy:
		return 0
	case StatusDegraded:
		return 1
	case StatusUnhealthy:
		return 2
	case StatusCritical:
		return 3
	default:
		return 0
	}
}

// StatusForScore maps a 0-100 health score onto a status band.
// Bands are advisory only; they never gate execution.
func StatusForScore(score int) Status {
	switch {
	case score >= HealthyBand:
		return StatusHealthy
	case score >= DegradedBand:
		return StatusDegraded
	case score >= UnhealthyBand:
		return StatusUnhealthy
	default:
		return StatusCritical
	}
}
