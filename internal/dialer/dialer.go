package dialer

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/go-sess/sess/netpool"
)

// Dialers handle everything below the byte stream: TCP connect, name
// resolution, TLS. The session hands a Dialer to the pool whenever a
// destination needs a fresh connection.
type Dialer interface {
	// Dial opens a transport stream to dest, TLS-wrapped when the
	// destination scheme demands it.
	Dial(ctx context.Context, dest netpool.Destination) (net.Conn, error)
	Unwrap() Dialer
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig: d.ResolveConfig.Clone(),
		TLSConfig:     d.TLSConfig.Clone(),
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}
