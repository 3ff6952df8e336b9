package model

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-sess/sess/internal/errs"
)

type Request struct {
	Method string
	URL    string
	Body   interface{}
	Header http.Header

	// MaxRedirects overrides the session's redirect bound for this
	// request when non-nil.
	MaxRedirects *int
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64
	Body          io.ReadCloser

	// Close records the connection directive for this exchange: true
	// means the underlying connection must not be reused afterwards.
	Close bool

	// History holds the responses of the redirect hops that led here,
	// oldest first. Their bodies are already drained and closed.
	History []*Response
}

// ErrorForStatus returns a *errs.StatusError for 4xx and 5xx
// responses, nil otherwise.
func (r *Response) ErrorForStatus() error {
	if r.StatusCode < 400 {
		return nil
	}
	reason := r.Status
	if _, rest, ok := strings.Cut(r.Status, " "); ok {
		reason = rest
	}
	return &errs.StatusError{StatusCode: r.StatusCode, Status: reason}
}
