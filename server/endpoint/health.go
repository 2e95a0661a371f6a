package endpoint

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/jobflow/component"
)

// HealthChecker returns the health of every registered component.
type HealthChecker func(ctx context.Context) []component.Health

// HealthReport is the body of GET /health.
type HealthReport struct {
	Service    string                         `json:"service"`
	Status     component.HealthStatus         `json:"status"`
	Counts     map[component.HealthStatus]int `json:"counts"`
	Components []component.Health             `json:"components"`
	CheckedAt  time.Time                      `json:"checkedAt"`
}

// Code is the HTTP status the report is served with.
func (r HealthReport) Code() int {
	if r.Status == component.StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Check runs checker and folds its results into a report. A nil checker
// reports a healthy service with no components.
func Check(ctx context.Context, serviceName string, checker HealthChecker) HealthReport {
	report := HealthReport{
		Service:    serviceName,
		Counts:     make(map[component.HealthStatus]int),
		Components: []component.Health{},
		CheckedAt:  time.Now().UTC(),
	}
	if checker != nil {
		if hs := checker(ctx); hs != nil {
			report.Components = hs
		}
	}
	for _, h := range report.Components {
		report.Counts[h.Status]++
	}
	report.Status = component.Overall(report.Components)
	return report
}

func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := Check(c.Request.Context(), serviceName, checker)
		c.JSON(report.Code(), report)
	}
}
