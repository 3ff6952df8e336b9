// Package netpool maintains bounded sets of reusable transport
// connections keyed by destination. At most maxPerHost connections
// exist per destination at any instant, counting both leased and idle
// ones; callers beyond the limit suspend in Lease until a holder
// releases or discards, and are served in arrival order.
package netpool

import (
	"context"
	"sync"
	"time"
)

type Group struct {
	mu    sync.RWMutex
	pools map[Destination]*pool

	maxPerHost  int
	idleTimeout time.Duration
	closed      bool
}

func NewGroup(maxPerHost int, idleTimeout time.Duration) *Group {
	return &Group{
		pools:       map[Destination]*pool{},
		maxPerHost:  maxPerHost,
		idleTimeout: idleTimeout,
	}
}

// Lease returns a connection to dest, reusing an idle one when
// possible and dialing via dial otherwise. The caller owns the
// returned Conn until it calls exactly one of Release or Discard.
func (g *Group) Lease(ctx context.Context, dest Destination, dial DialFunc) (*Conn, error) {
	g.mu.RLock()
	if g.closed {
		g.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	p, ok := g.pools[dest]
	g.mu.RUnlock()
	if ok {
		return p.lease(ctx, dial)
	}
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p, ok = g.pools[dest]; !ok {
		p = newPool(dest, g.maxPerHost, g.idleTimeout)
		g.pools[dest] = p
	}
	g.mu.Unlock()
	return p.lease(ctx, dial)
}

// Release returns a healthy leased connection to its bucket's idle
// list, or hands it straight to a parked waiter.
func (g *Group) Release(c *Conn) error {
	return c.pool.release(c)
}

// Discard closes a leased connection and frees its pool slot.
func (g *Group) Discard(c *Conn) error {
	return c.pool.discard(c)
}

// Close tears the group down: every idle connection is closed and all
// parked waiters fail with ErrPoolClosed. Leased connections are closed
// as they come back.
func (g *Group) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	pools := make([]*pool, 0, len(g.pools))
	for _, p := range g.pools {
		pools = append(pools, p)
	}
	g.mu.Unlock()
	for _, p := range pools {
		p.close()
	}
}

// Stats reports the leased and idle connection counts for dest.
func (g *Group) Stats(dest Destination) (leased, idle int) {
	g.mu.RLock()
	p, ok := g.pools[dest]
	g.mu.RUnlock()
	if !ok {
		return 0, 0
	}
	return p.stats()
}
