package middleware_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sess/sess/internal"
	"github.com/go-sess/sess/internal/middleware"
	"github.com/go-sess/sess/internal/model"
)

func prepared(t *testing.T, header http.Header) *model.PreparedRequest {
	t.Helper()
	pr, err := (&model.Request{Method: "GET", URL: "http://example.com/", Header: header}).Prepare()
	require.NoError(t, err)
	return pr
}

func capture(got **model.PreparedRequest) internal.Handler {
	return func(ctx context.Context, req *model.PreparedRequest) (*model.Response, error) {
		*got = req
		return &model.Response{StatusCode: 200}, nil
	}
}

func TestRequestIDStampsMissingHeader(t *testing.T) {
	var got *model.PreparedRequest
	handler := middleware.RequestID()(capture(&got))

	_, err := handler(context.Background(), prepared(t, nil))
	require.NoError(t, err)

	id := got.Header.Get("X-Request-Id")
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "header should carry a valid uuid, got %q", id)
}

func TestRequestIDKeepsExistingHeader(t *testing.T) {
	var got *model.PreparedRequest
	handler := middleware.RequestID()(capture(&got))

	_, err := handler(context.Background(), prepared(t, http.Header{"X-Request-Id": {"fixed"}}))
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Header.Get("X-Request-Id"))
}

func TestTraceNilTracerPassesThrough(t *testing.T) {
	var got *model.PreparedRequest
	handler := middleware.Trace(nil)(capture(&got))

	resp, err := handler(context.Background(), prepared(t, nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotNil(t, got)
}
