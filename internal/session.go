package internal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-sess/sess/internal/cookies"
	"github.com/go-sess/sess/internal/dialer"
	"github.com/go-sess/sess/internal/errs"
	"github.com/go-sess/sess/internal/model"
	"github.com/go-sess/sess/internal/transport"
	"github.com/go-sess/sess/netpool"
)

type PreparedRequest = model.PreparedRequest

type Handler = func(ctx context.Context, req *PreparedRequest) (*model.Response, error)
type Middleware func(next Handler) Handler

// aLongTimeAgo is a non-zero deadline in the past, used to force
// in-flight reads and writes off a connection on cancellation.
var aLongTimeAgo = time.Unix(1, 0)

// A Session multiplexes requests over a bounded per-destination
// connection pool and carries cookies, default headers, redirect and
// retry policy across them. Concurrent calls are independent; they
// share only the pool and the cookie jar.
type Session struct {
	pool   *netpool.Group
	jar    *cookies.Jar
	dialer dialer.Dialer
	logger *slog.Logger

	defaultHeaders http.Header
	maxRedirects   int
	maxRetries     int
	timeout        time.Duration
	limiter        *rate.Limiter

	middlewares []Middleware
}

func New(opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.dialer == nil {
		cfg.dialer = &dialer.CoreDialer{
			TLSConfig:     cfg.tlsConfig,
			ResolveConfig: cfg.resolveConfig,
		}
	}
	if cfg.defaultHeaders == nil {
		cfg.defaultHeaders = http.Header{}
	}
	if cfg.defaultHeaders.Get("User-Agent") == "" {
		cfg.defaultHeaders.Set("User-Agent", "go-sess/0.1")
	}
	return &Session{
		pool:           netpool.NewGroup(cfg.maxConnsPerHost, cfg.idleTimeout),
		jar:            cookies.NewJar(),
		dialer:         cfg.dialer,
		logger:         cfg.logger,
		defaultHeaders: cfg.defaultHeaders,
		maxRedirects:   cfg.maxRedirects,
		maxRetries:     cfg.maxRetries,
		timeout:        cfg.timeout,
		limiter:        cfg.limiter,
	}, nil
}

// Use appends mw to the chain. The first Use'd middleware wraps
// outermost and runs first, once per redirect hop.
func (s *Session) Use(mws ...Middleware) {
	s.middlewares = append(s.middlewares, mws...)
}

// Jar exposes the session's cookie store, e.g. to preload cookies.
func (s *Session) Jar() *cookies.Jar { return s.jar }

// Close tears down the session: every pooled connection is closed and
// parked leases fail. The cookie store is discarded with the session.
func (s *Session) Close() {
	s.pool.Close()
}

// Do sends req and follows redirects up to the configured bound,
// retrying transport-class failures on a fresh connection. The
// returned response's Body must be closed; closing it returns the
// connection to the pool (or discards it, if the body was not fully
// read or the exchange forbade reuse).
func (s *Session) Do(ctx context.Context, req *model.Request) (*model.Response, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if s.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
	}
	maxRedirects := s.maxRedirects
	if req.MaxRedirects != nil {
		maxRedirects = *req.MaxRedirects
	}

	var history []*model.Response
	cur := req
	for {
		pr, resp, err := s.roundTrip(ctx, cur)
		if err != nil {
			return nil, err
		}
		next, follow := resolveRedirect(pr, resp)
		if !follow {
			resp.History = history
			return resp, nil
		}
		if len(history) >= maxRedirects {
			drain(resp)
			resp.History = history
			return nil, &TooManyRedirectsError{Response: resp}
		}
		s.logger.Debug("following redirect",
			"status", resp.StatusCode, "from", pr.U.String(), "to", next.URL)
		drain(resp)
		history = append(history, resp)
		cur = next
	}
}

// roundTrip performs one hop: merge headers and cookies for the
// target, run the middleware chain around the attempt loop, and feed
// Set-Cookie headers back into the jar.
func (s *Session) roundTrip(ctx context.Context, req *model.Request) (*model.PreparedRequest, *model.Response, error) {
	r := *req
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	r.Header = mergeHeaders(s.defaultHeaders, req.Header)
	pr, err := r.Prepare()
	if err != nil {
		return nil, nil, err
	}
	host := pr.U.Hostname()
	if cs := s.jar.Applicable(host, pr.CookiePath(), pr.U.Scheme == "https"); len(cs) > 0 {
		pr.Header.Add("Cookie", cookies.Header(cs))
	}

	handler := s.attempt
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		handler = s.middlewares[i](handler)
	}
	resp, err := handler(ctx, pr)
	if err != nil {
		return nil, nil, err
	}
	s.jar.Update(host, pr.CookiePath(), resp.Header["Set-Cookie"])
	return pr, resp, nil
}

// attempt runs the exchange, leasing a fresh connection per try.
// Only transport-class failures are retried: the pool and pipeline
// surface errors, but the session alone knows the retry budget.
func (s *Session) attempt(ctx context.Context, pr *model.PreparedRequest) (*model.Response, error) {
	for attempt := 0; ; attempt++ {
		resp, err := s.exchange(ctx, pr)
		if err == nil {
			return resp, nil
		}
		var ce *errs.ConnectionError
		if !errors.As(err, &ce) || attempt >= s.maxRetries || !retryable(ce.Err) || !pr.Replayable() {
			return nil, err
		}
		s.logger.Debug("retrying on a fresh connection",
			"attempt", attempt+1, "url", pr.U.String(), "error", err)
	}
}

// exchange leases a connection, writes the request, reads the
// response, and wires the response body to the pool: a drained body on
// a reusable connection releases it, anything else discards it.
func (s *Session) exchange(ctx context.Context, pr *model.PreparedRequest) (*model.Response, error) {
	dest, err := pr.Destination()
	if err != nil {
		return nil, err
	}
	c, err := s.pool.Lease(ctx, dest, func(ctx context.Context) (net.Conn, error) {
		return s.dialer.Dial(ctx, dest)
	})
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return nil, &errs.TimeoutError{Phase: "lease", Err: err}
		case errors.Is(err, context.Canceled), errors.Is(err, netpool.ErrPoolClosed):
			return nil, err
		}
		return nil, &errs.ConnectionError{Op: "dial", Err: err}
	}

	if d, ok := ctx.Deadline(); ok {
		c.Raw().SetDeadline(d)
	}
	stop := make(chan struct{})
	settled := make(chan struct{})
	var stopOnce sync.Once
	// unwatch waits for the watcher to exit, so it can never touch the
	// connection after the release-or-discard decision below
	unwatch := func() {
		stopOnce.Do(func() { close(stop) })
		<-settled
	}
	go func() {
		defer close(settled)
		select {
		case <-ctx.Done():
			// unblock any pending read/write; the connection's state
			// is indeterminate now, so it can only be discarded
			c.MarkUnreusable()
			c.Raw().SetDeadline(aLongTimeAgo)
		case <-stop:
		}
	}()

	fail := func(op string, err error) error {
		unwatch()
		s.pool.Discard(c)
		if ctxErr := ctx.Err(); ctxErr != nil {
			if ctxErr == context.DeadlineExceeded {
				return &errs.TimeoutError{Phase: op, Err: ctxErr}
			}
			return ctxErr
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return &errs.TimeoutError{Phase: op, Err: err}
		}
		return &errs.ConnectionError{Op: op, Err: err}
	}

	if err := transport.Write(c, pr); err != nil {
		return nil, fail("write", err)
	}
	resp := &model.Response{}
	if err := transport.Read(c, pr, resp); err != nil {
		var pe *errs.ProtocolError
		if errors.As(err, &pe) {
			unwatch()
			s.pool.Discard(c)
			return nil, pe
		}
		return nil, fail("read", err)
	}
	c.SetProto(resp.Proto)

	body := resp.Body
	resp.Body = model.TrackBody(body, func(drained bool) error {
		unwatch()
		if drained && !resp.Close && c.Reusable() {
			c.Raw().SetDeadline(time.Time{})
			return s.pool.Release(c)
		}
		s.logger.Debug("discarding connection",
			"dest", dest.String(), "drained", drained, "close", resp.Close)
		return s.pool.Discard(c)
	})
	return resp, nil
}

// Get issues a GET to the given URL through the session.
func (s *Session) Get(ctx context.Context, url string) (*model.Response, error) {
	return s.Do(ctx, &model.Request{Method: http.MethodGet, URL: url})
}

// Head issues a HEAD to the given URL through the session.
func (s *Session) Head(ctx context.Context, url string) (*model.Response, error) {
	return s.Do(ctx, &model.Request{Method: http.MethodHead, URL: url})
}

// Post issues a POST with the given body. The body may be any of the
// types request preparation supports: string, []byte, *bytes.Buffer,
// *bytes.Reader, *strings.Reader, io.Reader, or io.ReadCloser.
func (s *Session) Post(ctx context.Context, url, contentType string, body interface{}) (*model.Response, error) {
	req := &model.Request{Method: http.MethodPost, URL: url, Body: body}
	if contentType != "" {
		req.Header = http.Header{"Content-Type": {contentType}}
	}
	return s.Do(ctx, req)
}

// Put issues a PUT with the given body, like Post.
func (s *Session) Put(ctx context.Context, url, contentType string, body interface{}) (*model.Response, error) {
	req := &model.Request{Method: http.MethodPut, URL: url, Body: body}
	if contentType != "" {
		req.Header = http.Header{"Content-Type": {contentType}}
	}
	return s.Do(ctx, req)
}

// Delete issues a DELETE to the given URL through the session.
func (s *Session) Delete(ctx context.Context, url string) (*model.Response, error) {
	return s.Do(ctx, &model.Request{Method: http.MethodDelete, URL: url})
}

// mergeHeaders lays caller headers over the session defaults; on a
// key collision (case-insensitive) the caller's values win wholesale.
func mergeHeaders(base, override http.Header) http.Header {
	h := base.Clone()
	if h == nil {
		h = http.Header{}
	}
	for k, vv := range override {
		for existing := range h {
			if existing != k && strings.EqualFold(existing, k) {
				delete(h, existing)
			}
		}
		h[k] = append([]string(nil), vv...)
	}
	return h
}

// drain consumes and closes a redirect hop's body so the connection
// can go back to the pool before the next hop.
func drain(resp *model.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	resp.Body = http.NoBody
}
