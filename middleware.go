package sess

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/go-sess/sess/internal/middleware"
)

// Trace returns a middleware that wraps every hop in an OpenTelemetry
// span. Register it with [Session.Use].
func Trace(tracer trace.Tracer) Middleware {
	return middleware.Trace(tracer)
}

// RequestID returns a middleware stamping outgoing requests with an
// X-Request-Id header when the caller did not set one.
func RequestID() Middleware {
	return middleware.RequestID()
}
