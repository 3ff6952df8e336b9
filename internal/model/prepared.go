package model

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/net/http/httpguts"

	"github.com/go-sess/sess/netpool"
)

var defaultPorts = map[string]string{
	"http": "80", "https": "443",
}

type PreparedRequest struct {
	*Request

	U          *url.URL
	GetBody    func() (io.ReadCloser, error)
	Header     http.Header
	HeaderHost string

	ContentLength int64

	// replayable reports whether GetBody can produce the body again,
	// which 307/308 redirects and transport retries require.
	replayable bool
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, err
	}

	headers := r.Header.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	host := u.Host
	cl := int64(-1)
	// user defined headers have higher priority
	for k, v := range headers {
		if strings.ToLower(k) == "host" {
			if len(v) != 0 {
				host = v[0]
			}
			delete(headers, k)
		}

		if strings.ToLower(k) == "content-length" {
			if len(v) != 0 {
				if v, err := strconv.ParseInt(v[0], 10, 64); err == nil {
					cl = v
				}
			}
			delete(headers, k)
		}
	}
	if host == "" {
		return nil, url.InvalidHostError("empty host")
	}
	if err := validateHeader(headers); err != nil {
		return nil, err
	}

	pr := &PreparedRequest{
		Request: r,

		U:             u,
		Header:        headers,
		HeaderHost:    host,
		ContentLength: cl,
	}
	if err := pr.updateBody(); err != nil {
		// note that updateBody potentially updates content-length
		return nil, err
	}
	return pr, nil
}

// Destination derives the pool bucket key for this request, filling in
// the scheme's default port when the URL carries none.
func (r *PreparedRequest) Destination() (netpool.Destination, error) {
	port := r.U.Port()
	if port == "" {
		var ok bool
		if port, ok = defaultPorts[r.U.Scheme]; !ok {
			return netpool.Destination{}, fmt.Errorf("unsupported scheme %q", r.U.Scheme)
		}
	}
	return netpool.Destination{
		Scheme: r.U.Scheme,
		Host:   r.U.Hostname(),
		Port:   port,
	}, nil
}

// Replayable reports whether the request body can be produced again,
// e.g. for a retry on a fresh connection or a 307/308 hop.
func (r *PreparedRequest) Replayable() bool { return r.replayable }

func validateHeader(h http.Header) error {
	for k, vv := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return fmt.Errorf("invalid header field name %q", k)
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return fmt.Errorf("invalid value for header field %q", k)
			}
		}
	}
	return nil
}

// should only be called once at [Prepare]
func (r *PreparedRequest) updateBody() (err error) {
	r.replayable = true
	if r.Request.Body == nil {
		r.GetBody = func() (io.ReadCloser, error) {
			return nil, nil
		}
		return nil
	}
	switch b := r.Request.Body.(type) {
	case io.ReadCloser:
		once := atomic.Bool{}
		r.GetBody = func() (io.ReadCloser, error) {
			if once.CompareAndSwap(false, true) {
				return b, nil
			}
			return nil, http.ErrBodyReadAfterClose
		}
		r.replayable = false
		// unknown content-length
	case *bytes.Buffer: // below is taken from http.NewRequest
		r.ContentLength = int64(b.Len())
		buf := b.Bytes()
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	case *bytes.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case *strings.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case string:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}
	case []byte:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	case io.Reader:
		once := atomic.Bool{}
		r.GetBody = func() (io.ReadCloser, error) {
			if once.CompareAndSwap(false, true) {
				return io.NopCloser(b), nil
			}
			return nil, http.ErrBodyReadAfterClose
		}
		r.replayable = false
	default:
		return fmt.Errorf("unsupported body type: %T", r.Request.Body)
	}
	return nil
}

// CookiePath returns the default cookie path for this request per the
// directory of the request path.
func (r *PreparedRequest) CookiePath() string {
	p := r.U.EscapedPath()
	if p == "" {
		return "/"
	}
	return p
}
