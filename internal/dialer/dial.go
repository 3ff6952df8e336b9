package dialer

import (
	"context"
	"crypto/tls"
	"net"

	"github.com/go-sess/sess/netpool"
)

var zeroDialer net.Dialer
var customDNSDialer = net.Dialer{
	Resolver: &customServerResolver,
}

func (d *CoreDialer) Dial(ctx context.Context, dest netpool.Destination) (net.Conn, error) {
	network, dialer, dialctx, dst := "tcp", &zeroDialer, ctx, dest.Addr()

	if cfg := d.ResolveConfig; cfg != nil {
		if cfg.Network == "ip4" {
			network = "tcp4"
		} else if cfg.Network == "ip6" {
			network = "tcp6"
		}
		if static, ok := cfg.StaticHosts[dest.Host]; ok {
			dst = net.JoinHostPort(static, dest.Port)
		}
		if dns := cfg.CustomDNSServer; dns != "" {
			dialctx = dnsServerCtx{dialctx, dns}
			dialer = &customDNSDialer
		}
	}

	conn, err := dialer.DialContext(dialctx, network, dst)
	if err != nil {
		return nil, err
	}
	if dest.Scheme != "https" {
		return conn, nil
	}

	config := d.TLSConfig.Clone()
	if config == nil {
		config = &tls.Config{}
	}
	if config.ServerName == "" {
		config.ServerName = dest.Host
	}
	// a pooled stream carries exactly one exchange at a time, so never
	// negotiate h2 even if the peer offers it
	config.NextProtos = []string{"http/1.1"}
	c := tls.Client(conn, config)
	if err := c.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}
