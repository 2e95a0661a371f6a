package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware is the net/http middleware signature.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares; the first is outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// GinWrap adapts a Middleware to a gin handler. When the middleware answers
// without calling next, the rest of the chain is aborted.
func GinWrap(mw Middleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		called := false
		next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			called = true
			c.Request = r
			c.Next()
		})
		mw(next).ServeHTTP(c.Writer, c.Request)
		if !called {
			c.Abort()
		}
	}
}
