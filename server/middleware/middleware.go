package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware is the standard net/http middleware signature. The server
// chains these around its root mux, so they see every request.
type Middleware func(http.Handler) http.Handler

// Chain composes middleware. The first is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// GinWrap adapts a Middleware for a Gin route group. Request changes are
// propagated to the Gin context and the chain is aborted when the
// middleware answers without calling next. Writer wrapping is not
// propagated, so wrap only middleware that gates requests.
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
