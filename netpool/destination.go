package netpool

import "net"

// A Destination identifies one endpoint connections can be pooled for.
// It is a comparable value type so it can be used directly as a map key:
// two requests share a pool bucket iff their Destinations are equal.
type Destination struct {
	Scheme string
	Host   string
	Port   string
}

// Addr returns the host:port pair to dial for this destination.
func (d Destination) Addr() string {
	return net.JoinHostPort(d.Host, d.Port)
}

func (d Destination) String() string {
	return d.Scheme + "://" + d.Addr()
}
