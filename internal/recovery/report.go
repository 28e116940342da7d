package recovery

import (
	"errors"
	"fmt"

	"fabula/internal/health"
	"fabula/internal/services"
)

// Report is the post-run summary of what went wrong and what the
// coordinator did about it.
type Report struct {
	ProjectID       string
	Failures        []FailedOperation
	Actions         []Action
	Services        []health.ServiceStatus
	Degradation     health.Degradation
	Recommendations []string
}

// rateLimitRecommendationThreshold is the number of rate-limit failures
// after which concurrency advice is added to the report.
const rateLimitRecommendationThreshold = 2

// BuildReport assembles the recovery report for one project, or for the whole
// run when projectID is empty.
func (c *Coordinator) BuildReport(projectID string) Report {
	failures := c.Failures(projectID)
	report := Report{
		ProjectID:   projectID,
		Failures:    failures,
		Actions:     c.Actions(),
		Services:    c.health.Snapshot(),
		Degradation: c.health.Overall(),
	}
	report.Recommendations = recommendations(failures, report.Degradation)
	return report
}

func recommendations(failures []FailedOperation, degradation health.Degradation) []string {
	var out []string

	rateLimited := 0
	quota := false
	for _, failure := range failures {
		var svcErr *services.Error
		if !errors.As(failure.Err, &svcErr) {
			continue
		}
		switch svcErr.Code {
		case services.CodeRateLimited:
			rateLimited++
		case services.CodeQuotaExceeded:
			quota = true
		}
	}

	if rateLimited >= rateLimitRecommendationThreshold {
		out = append(out, fmt.Sprintf(
			"%d rate-limit failures recorded: reduce concurrency or add delay between requests", rateLimited))
	}
	if quota {
		out = append(out, "a provider quota was exhausted: wait for the quota window or raise the plan limit")
	}
	if degradation == health.DegradationSevere {
		out = append(out, "at least one service is unavailable: check provider status before resuming")
	}
	return out
}
