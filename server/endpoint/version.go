package endpoint

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/jobflow/version"
)

var startTime = time.Now()

// Version reports build information and uptime.
func Version(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := version.GetVersionInfo()
		c.JSON(http.StatusOK, gin.H{
			"service":    serviceName,
			"version":    v.Version,
			"git_commit": v.GitCommit,
			"build_time": v.BuildTime,
			"go_version": v.GoVersion,
			"is_dirty":   v.IsDirty,
			"uptime":     time.Since(startTime).Round(time.Second).String(),
		})
	}
}
