package middleware

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/jobflow/logger"
)

var quietPaths = []string{"/health", "/livez", "/readyz", "/version"}

// RequestLogger logs every request except probes: 5xx at error, 4xx at warn,
// the rest at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if slices.Contains(quietPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.DurationFields("http.request", time.Since(start))
		fields["method"] = c.Request.Method
		fields["path"] = c.FullPath()
		fields[logger.FieldStatus] = status
		fields["client"] = c.ClientIP()
		if id, ok := c.Get(logger.FieldRequestID); ok {
			fields[logger.FieldRequestID] = id
		}
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}

		switch {
		case status >= 500:
			log.Error("Request completed", fields)
		case status >= 400:
			log.Warn("Request completed", fields)
		default:
			log.Debug("Request completed", fields)
		}
	}
}
