package netpool

import (
	"net"
	"sync/atomic"
	"time"
)

type connState int32

const (
	stateIdle connState = iota
	stateLeased
	stateClosed
)

// A Conn is one pooled transport stream. While leased it is owned by
// exactly one caller; while idle or closed it is owned by the pool.
// Read and Write errors mark the connection unreusable so a later
// Release turns into a close instead of returning a broken socket
// to the idle list.
type Conn struct {
	pool *pool
	conn net.Conn

	state    connState // guarded by pool.mu
	lastIdle time.Time // guarded by pool.mu

	broken atomic.Bool
	proto  atomic.Value // protocol version advertised by the peer, e.g. "HTTP/1.0"
}

func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.conn.Read(p)
	if err != nil {
		c.broken.Store(true)
	}
	return n, err
}

func (c *Conn) Write(p []byte) (int, error) {
	n, err := c.conn.Write(p)
	if err != nil {
		c.broken.Store(true)
	}
	return n, err
}

// Raw exposes the underlying net.Conn, e.g. for deadline control.
func (c *Conn) Raw() net.Conn {
	return c.conn
}

// Destination returns the endpoint this connection was opened for.
func (c *Conn) Destination() Destination {
	return c.pool.dest
}

// MarkUnreusable flags the connection so it is closed on release
// instead of going back to the idle list. Used when an exchange left
// the stream in an indeterminate state, e.g. an unread response body.
func (c *Conn) MarkUnreusable() {
	c.broken.Store(true)
}

// Reusable reports whether the connection may serve another exchange.
func (c *Conn) Reusable() bool {
	return !c.broken.Load()
}

// SetProto records the protocol version observed on this connection.
func (c *Conn) SetProto(proto string) {
	c.proto.Store(proto)
}

// Proto returns the recorded protocol version, or "" before any exchange.
func (c *Conn) Proto() string {
	if v, ok := c.proto.Load().(string); ok {
		return v
	}
	return ""
}
