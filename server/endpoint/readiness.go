package endpoint

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Readiness answers 503 while any component is unhealthy.
func Readiness(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := Check(c.Request.Context(), "", checker)
		status := "ready"
		if report.Code() != http.StatusOK {
			status = "not_ready"
		}
		c.JSON(report.Code(), gin.H{"status": status})
	}
}
