package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/eaglebank/digibank/shared/tracing"
)

const traceContextKey = "traceContext"

// CorrelationMiddleware takes the correlation id from the inbound request, or
// creates one when absent, stores it on the request context and echoes it on
// the response.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, _ := tracing.FromHeader(c.Request.Header)
		c.Set(traceContextKey, tc)
		c.Request = c.Request.WithContext(tracing.WithContext(c.Request.Context(), tc))
		c.Header(tracing.CorrelationHeader, tc.CorrelationID)
		c.Next()
	}
}

// GetTraceContext returns the trace token set by CorrelationMiddleware, or the
// inbound header when the middleware is not installed.
func GetTraceContext(c *gin.Context) tracing.Context {
	if v, ok := c.Get(traceContextKey); ok {
		if tc, ok := v.(tracing.Context); ok {
			return tc
		}
	}
	tc, _ := tracing.FromHeader(c.Request.Header)
	return tc
}
