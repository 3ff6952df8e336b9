package netpool

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/go-sess/sess/utils/nettools"
)

// DialFunc opens a fresh transport stream for a pool bucket.
type DialFunc func(ctx context.Context) (net.Conn, error)

// waiter is one parked Lease call. A released connection is handed to
// the head waiter directly; a freed slot is handed over as a nil grant,
// telling the waiter to dial for itself. Delivery happens under pool.mu,
// so cancelled can never race with a send.
type waiter struct {
	ready     chan *Conn // buffered; nil element grants a dial slot
	cancelled bool
}

type pool struct {
	mu   sync.Mutex
	dest Destination

	idle    []*Conn // oldest first
	leased  int
	waiters *queue.Queue

	maxPerHost  int
	idleTimeout time.Duration
	closed      bool
}

func newPool(dest Destination, maxPerHost int, idleTimeout time.Duration) *pool {
	return &pool{
		dest:        dest,
		waiters:     queue.New(),
		maxPerHost:  maxPerHost,
		idleTimeout: idleTimeout,
	}
}

// lease hands out a connection for dest, blocking until one is
// available. Reuse order is oldest-idle first; waiters for the same
// destination are served in arrival order.
func (p *pool) lease(ctx context.Context, dial DialFunc) (*Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if c := p.takeIdleLocked(); c != nil {
		p.mu.Unlock()
		return c, nil
	}
	if p.leased+len(p.idle) < p.maxPerHost {
		p.leased++
		p.mu.Unlock()
		return p.dialNew(ctx, dial)
	}
	w := &waiter{ready: make(chan *Conn, 1)}
	p.waiters.Add(w)
	p.mu.Unlock()

	select {
	case c := <-w.ready:
		if c != nil {
			return c, nil
		}
		p.mu.Lock()
		if p.closed {
			p.leased--
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		p.mu.Unlock()
		return p.dialNew(ctx, dial)
	case <-ctx.Done():
		p.mu.Lock()
		select {
		case c := <-w.ready:
			// a handoff raced with cancellation; pass it on or park it
			if c != nil {
				if next := p.popWaiterLocked(); next != nil {
					next.ready <- c
				} else {
					c.lastIdle = time.Now()
					c.state = stateIdle
					p.leased--
					p.idle = append(p.idle, c)
				}
			} else {
				p.leased--
				p.wakeLocked()
			}
		default:
			w.cancelled = true
		}
		p.mu.Unlock()
		return nil, ctx.Err()
	}
}

// takeIdleLocked pops idle connections until it finds one that is both
// fresh and still open. Stale or peer-closed sockets are dropped on the
// spot; handing them out would just fail the next write.
func (p *pool) takeIdleLocked() *Conn {
	for len(p.idle) > 0 {
		c := p.idle[0]
		p.idle = p.idle[1:]
		if p.idleTimeout > 0 && time.Since(c.lastIdle) > p.idleTimeout {
			c.state = stateClosed
			c.conn.Close()
			continue
		}
		if !c.Reusable() || !nettools.ConnAlive(c.conn) {
			c.state = stateClosed
			c.conn.Close()
			continue
		}
		c.state = stateLeased
		p.leased++
		return c
	}
	return nil
}

// dialNew is called with a slot already reserved (leased incremented).
// A failed dial gives the slot back and wakes the next waiter, so a
// refused connection never leaks pool capacity.
func (p *pool) dialNew(ctx context.Context, dial DialFunc) (*Conn, error) {
	nc, err := dial(ctx)
	if err != nil {
		p.mu.Lock()
		p.leased--
		p.wakeLocked()
		p.mu.Unlock()
		return nil, err
	}
	return &Conn{pool: p, conn: nc, state: stateLeased}, nil
}

func (p *pool) release(c *Conn) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.state != stateLeased {
		return ErrConnReleased
	}
	if p.closed || !c.Reusable() {
		c.state = stateClosed
		c.conn.Close()
		p.leased--
		p.wakeLocked()
		return nil
	}
	c.lastIdle = time.Now()
	if w := p.popWaiterLocked(); w != nil {
		// direct handoff: stays leased, just changes owner
		w.ready <- c
		return nil
	}
	c.state = stateIdle
	p.leased--
	p.idle = append(p.idle, c)
	return nil
}

func (p *pool) discard(c *Conn) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.state != stateLeased {
		return ErrConnReleased
	}
	c.state = stateClosed
	c.conn.Close()
	p.leased--
	p.wakeLocked()
	return nil
}

// wakeLocked grants the freed slot to the first live waiter, if any.
func (p *pool) wakeLocked() {
	for p.waiters.Length() > 0 {
		w := p.waiters.Remove().(*waiter)
		if w.cancelled {
			continue
		}
		p.leased++
		w.ready <- nil
		return
	}
}

func (p *pool) popWaiterLocked() *waiter {
	for p.waiters.Length() > 0 {
		w := p.waiters.Remove().(*waiter)
		if !w.cancelled {
			return w
		}
	}
	return nil
}

func (p *pool) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, c := range p.idle {
		c.state = stateClosed
		c.conn.Close()
	}
	p.idle = nil
	for p.waiters.Length() > 0 {
		w := p.waiters.Remove().(*waiter)
		if w.cancelled {
			continue
		}
		p.leased++
		w.ready <- nil // waiter observes closed and fails its lease
	}
}

func (p *pool) stats() (leased, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased, len(p.idle)
}
