// Package middleware provides optional handler wrappers for a
// session's request chain.
package middleware

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/go-sess/sess/internal"
	"github.com/go-sess/sess/internal/model"
)

// Trace wraps each redirect hop in a span carrying method, target and
// response status. A nil tracer degrades to a no-op.
func Trace(tracer trace.Tracer) internal.Middleware {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("no-op tracer")
	}
	return func(next internal.Handler) internal.Handler {
		return func(ctx context.Context, req *model.PreparedRequest) (*model.Response, error) {
			ctx, span := tracer.Start(ctx, "session.request")
			defer span.End()
			span.SetAttributes(
				attribute.String("http.request.method", req.Method),
				attribute.String("url.full", req.U.String()),
				attribute.String("server.address", req.U.Hostname()),
			)

			resp, err := next(ctx, req)
			if err != nil {
				span.SetStatus(codes.Error, err.Error())
				return nil, err
			}
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			return resp, nil
		}
	}
}
