package internal

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/go-sess/sess/internal/dialer"
)

// Option configures a Session at construction time.
//
// WithLogger injects a custom logger, WithDefaultHeaders sets headers
// merged into every request, WithRateLimit throttles outbound
// requests with a token bucket.
type Option func(*config) error

type config struct {
	maxConnsPerHost int
	idleTimeout     time.Duration
	maxRedirects    int
	maxRetries      int
	timeout         time.Duration

	defaultHeaders http.Header
	tlsConfig      *tls.Config
	resolveConfig  *dialer.ResolveConfig
	dialer         dialer.Dialer
	logger         *slog.Logger
	limiter        *rate.Limiter
}

func defaultConfig() config {
	return config{
		maxConnsPerHost: 20,
		idleTimeout:     90 * time.Second,
		maxRedirects:    10,
		maxRetries:      1,
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return errors.New("max connections per host must be positive")
		}
		c.maxConnsPerHost = n
		return nil
	}
}

func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.New("idle timeout must not be negative")
		}
		c.idleTimeout = d
		return nil
	}
}

func WithMaxRedirects(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.New("max redirects must not be negative")
		}
		c.maxRedirects = n
		return nil
	}
}

func WithMaxRetries(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return errors.New("max retries must not be negative")
		}
		c.maxRetries = n
		return nil
	}
}

// WithTimeout bounds each request issued through the session, covering
// the pool lease wait and the full exchange. A caller-supplied context
// deadline takes precedence.
func WithTimeout(d time.Duration) Option {
	return func(c *config) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = d
		return nil
	}
}

func WithDefaultHeaders(h http.Header) Option {
	return func(c *config) error {
		c.defaultHeaders = h.Clone()
		return nil
	}
}

func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) error {
		c.tlsConfig = cfg
		return nil
	}
}

func WithResolveConfig(cfg *dialer.ResolveConfig) Option {
	return func(c *config) error {
		c.resolveConfig = cfg
		return nil
	}
}

func WithDialer(d dialer.Dialer) Option {
	return func(c *config) error {
		if d == nil {
			return errors.New("dialer must not be nil")
		}
		c.dialer = d
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *config) error {
		if l == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = l
		return nil
	}
}

// WithRateLimit caps outbound requests at rps per second with the
// given burst, waiting (not failing) when the bucket is empty.
func WithRateLimit(rps, burst int) Option {
	return func(c *config) error {
		if rps <= 0 || burst <= 0 {
			return errors.New("rate and burst must be greater than zero")
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}
