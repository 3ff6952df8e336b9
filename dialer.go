package sess

import (
	"github.com/go-sess/sess/internal/dialer"
)

// Dialers are responsible for creating underlying streams that
// requests are written to and responses are read from — a raw TCP
// connection, TLS-wrapped when the destination scheme demands it.
//
// A Dialer MUST NOT hold active connection state: pooling is the
// session's job, so a Dialer can be swapped out without pain. It
// SHOULD hold the connection related configs, like *[crypto/tls.Config].
type Dialer = dialer.Dialer

// CoreDialer is the default implementation of the [Dialer] interface.
// It is used by any Session not configured with WithDialer.
type CoreDialer = dialer.CoreDialer

// we need a dedicated resolver for customizing DNS servers: the
// standard library didn't provide an intuitive way of setting DNS
// server addresses since it only follows the system configuration
// (e.g. /etc/resolv.conf), leaving only the [net.Resolver.Dial] hook
// with a Go Resolver. ResolveConfig takes advantage of that as far as
// possible to provide a relatively intuitive configuration API.
type ResolveConfig = dialer.ResolveConfig
