package internal

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sess/sess/internal/model"
)

func prepared(t *testing.T, req *model.Request) *model.PreparedRequest {
	t.Helper()
	pr, err := req.Prepare()
	require.NoError(t, err)
	return pr
}

func redirectResp(status int, location string) *model.Response {
	h := http.Header{}
	if location != "" {
		h.Set("Location", location)
	}
	return &model.Response{StatusCode: status, Header: h}
}

func TestRedirectMethodRewrite(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		method     string
		wantMethod string
		wantBody   bool
	}{
		{"303 post to get", 303, "POST", "GET", false},
		{"303 get stays get", 303, "GET", "GET", false},
		{"303 head downgrades", 303, "HEAD", "GET", false},
		{"301 post to get", 301, "POST", "GET", false},
		{"301 get preserved", 301, "GET", "GET", true},
		{"301 head preserved", 301, "HEAD", "HEAD", true},
		{"302 put to get", 302, "PUT", "GET", false},
		{"302 delete to get", 302, "DELETE", "GET", false},
		{"307 post preserved", 307, "POST", "POST", true},
		{"308 put preserved", 308, "PUT", "PUT", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			method, keepBody := redirectMethod(tc.status, tc.method)
			assert.Equal(t, tc.wantMethod, method)
			assert.Equal(t, tc.wantBody, keepBody)
		})
	}
}

func Test303DropsBodyAlways(t *testing.T) {
	pr := prepared(t, &model.Request{
		Method: "POST",
		URL:    "http://h/submit",
		Body:   "payload",
		Header: http.Header{"Content-Type": {"text/plain"}},
	})
	next, follow := resolveRedirect(pr, redirectResp(303, "/done"))
	require.True(t, follow)
	assert.Equal(t, "GET", next.Method)
	assert.Nil(t, next.Body)
	assert.Equal(t, "http://h/done", next.URL)
	assert.Empty(t, next.Header.Get("Content-Type"))
}

func Test307PreservesMethodAndBody(t *testing.T) {
	pr := prepared(t, &model.Request{
		Method: "POST",
		URL:    "http://h/submit",
		Body:   "payload",
	})
	next, follow := resolveRedirect(pr, redirectResp(307, "http://h/elsewhere"))
	require.True(t, follow)
	assert.Equal(t, "POST", next.Method)
	assert.Equal(t, "payload", next.Body)
}

func Test307OneShotBodyStopsChain(t *testing.T) {
	oneShot := struct{ io.Reader }{strings.NewReader("stream")}
	pr := prepared(t, &model.Request{
		Method: "POST",
		URL:    "http://h/submit",
		Body:   oneShot,
	})
	require.False(t, pr.Replayable())

	// the body cannot be replayed across the hop, so the redirect
	// response is handed back to the caller instead
	_, follow := resolveRedirect(pr, redirectResp(307, "/elsewhere"))
	assert.False(t, follow)

	// a 303 drops the body anyway and may still be followed
	next, follow := resolveRedirect(pr, redirectResp(303, "/done"))
	require.True(t, follow)
	assert.Equal(t, "GET", next.Method)
	assert.Nil(t, next.Body)
}

func TestRelativeLocationResolution(t *testing.T) {
	pr := prepared(t, &model.Request{Method: "GET", URL: "http://h/a/b?q=1"})

	next, follow := resolveRedirect(pr, redirectResp(302, "/2"))
	require.True(t, follow)
	assert.Equal(t, "http://h/2", next.URL)

	next, follow = resolveRedirect(pr, redirectResp(302, "c"))
	require.True(t, follow)
	assert.Equal(t, "http://h/a/c", next.URL)

	next, follow = resolveRedirect(pr, redirectResp(302, "//other.host/x"))
	require.True(t, follow)
	assert.Equal(t, "http://other.host/x", next.URL)
}

func TestNonRedirectStatusesStop(t *testing.T) {
	pr := prepared(t, &model.Request{Method: "GET", URL: "http://h/"})
	for _, status := range []int{200, 201, 204, 300, 304, 400, 404, 500} {
		_, follow := resolveRedirect(pr, redirectResp(status, "/elsewhere"))
		assert.False(t, follow, "status %d must not redirect", status)
	}
}

func TestMissingLocationStops(t *testing.T) {
	pr := prepared(t, &model.Request{Method: "GET", URL: "http://h/"})
	_, follow := resolveRedirect(pr, redirectResp(302, ""))
	assert.False(t, follow)
}

func TestSensitiveHeadersDroppedCrossHost(t *testing.T) {
	pr := prepared(t, &model.Request{
		Method: "GET",
		URL:    "http://h/",
		Header: http.Header{
			"Authorization": {"Bearer tok"},
			"Cookie":        {"a=1"},
			"Accept":        {"application/json"},
		},
	})

	next, follow := resolveRedirect(pr, redirectResp(302, "http://evil.example/"))
	require.True(t, follow)
	assert.Empty(t, next.Header.Get("Authorization"))
	assert.Empty(t, next.Header.Get("Cookie"))
	assert.Equal(t, "application/json", next.Header.Get("Accept"))

	next, follow = resolveRedirect(pr, redirectResp(302, "http://h/other"))
	require.True(t, follow)
	assert.Equal(t, "Bearer tok", next.Header.Get("Authorization"))
}

func TestMergeHeaders(t *testing.T) {
	base := http.Header{"User-Agent": {"default"}, "Accept": {"*/*"}}
	override := http.Header{"user-agent": {"custom"}}

	got := mergeHeaders(base, override)
	assert.Equal(t, []string{"custom"}, got["user-agent"])
	assert.NotContains(t, got, "User-Agent")
	assert.Equal(t, "*/*", got.Get("Accept"))
}
