package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/jobflow/errors"
	"github.com/kbukum/jobflow/logger"
)

// Recovery turns a handler panic into a 500 error envelope and logs the stack.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithContext(c.Request.Context()).Error("Panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					errors.Internal(fmt.Errorf("panic: %v", rec)).ToResponse())
			}
		}()
		c.Next()
	}
}
