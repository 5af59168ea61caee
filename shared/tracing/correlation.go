// Package tracing carries the request correlation id across service hops and
// configures OpenTelemetry span export.
package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// CorrelationHeader is the header every hop reads and forwards unchanged.
const CorrelationHeader = "digibank-correlation-id"

type contextKey string

const correlationKey contextKey = "correlationID"

// Context is the request-scoped trace token. It is never persisted.
type Context struct {
	CorrelationID string
}

// FromHeader returns the inbound correlation id, or a fresh one when the caller
// did not send any.
func FromHeader(h http.Header) (Context, bool) {
	if id := strings.TrimSpace(h.Get(CorrelationHeader)); id != "" {
		return Context{CorrelationID: id}, true
	}
	return New(), false
}

// New creates a trace token for a request that arrived without one.
func New() Context {
	return Context{CorrelationID: uuid.NewString()}
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, correlationKey, tc)
}

// FromContext returns the trace token stored in ctx, if any.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(correlationKey).(Context)
	return tc, ok
}

// Inject writes the correlation id and the W3C trace headers of ctx onto an
// outbound request header.
func Inject(ctx context.Context, tc Context, h http.Header) {
	if tc.CorrelationID != "" {
		h.Set(CorrelationHeader, tc.CorrelationID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(h))
}
