package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/go-sess/sess/internal"
	"github.com/go-sess/sess/internal/model"
)

// RequestID stamps each outgoing request with an X-Request-Id header
// unless the caller already set one, so exchanges can be correlated
// with server-side logs.
func RequestID() internal.Middleware {
	return func(next internal.Handler) internal.Handler {
		return func(ctx context.Context, req *model.PreparedRequest) (*model.Response, error) {
			if req.Header.Get("X-Request-Id") == "" {
				req.Header.Set("X-Request-Id", uuid.New().String())
			}
			return next(ctx, req)
		}
	}
}
