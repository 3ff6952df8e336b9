// Package sess is a session-oriented HTTP client: a bounded
// per-destination connection pool with keep-alive reuse, a persistent
// cookie store, redirect following and transparent retry of
// transport-level failures.
//
// A Session is created explicitly, shared freely between goroutines,
// and torn down with Close:
//
//	s, err := sess.New(sess.WithMaxConnsPerHost(8))
//	if err != nil { ... }
//	defer s.Close()
//	resp, err := s.Get(ctx, "https://example.com/")
package sess

import (
	"net/http"

	"github.com/go-sess/sess/internal"
	"github.com/go-sess/sess/internal/model"
)

type Header = http.Header
type Session = internal.Session
type Request = model.Request
type Response = model.Response

type Handler = internal.Handler
type Middleware = internal.Middleware
type Option = internal.Option

// New builds a Session from the given options.
func New(opts ...Option) (*Session, error) {
	return internal.New(opts...)
}

// Construction options; see the matching internal documentation.
var (
	WithMaxConnsPerHost = internal.WithMaxConnsPerHost
	WithIdleTimeout     = internal.WithIdleTimeout
	WithMaxRedirects    = internal.WithMaxRedirects
	WithMaxRetries      = internal.WithMaxRetries
	WithTimeout         = internal.WithTimeout
	WithDefaultHeaders  = internal.WithDefaultHeaders
	WithTLSConfig       = internal.WithTLSConfig
	WithResolveConfig   = internal.WithResolveConfig
	WithDialer          = internal.WithDialer
	WithLogger          = internal.WithLogger
	WithRateLimit       = internal.WithRateLimit
)
