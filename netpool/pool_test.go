package netpool_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sess/sess/netpool"
)

var testDest = netpool.Destination{Scheme: "http", Host: "example.com", Port: "80"}

// pipeDial returns a DialFunc backed by net.Pipe and a counter of
// successful dials. The remote ends are parked so closes don't block.
func pipeDial() (netpool.DialFunc, *atomic.Int32) {
	var n atomic.Int32
	return func(ctx context.Context) (net.Conn, error) {
		local, remote := net.Pipe()
		go func() {
			buf := make([]byte, 256)
			for {
				if _, err := remote.Read(buf); err != nil {
					return
				}
			}
		}()
		n.Add(1)
		return local, nil
	}, &n
}

func TestLeaseReusesIdleConnection(t *testing.T) {
	g := netpool.NewGroup(4, 0)
	defer g.Close()
	dial, dials := pipeDial()

	c, err := g.Lease(context.Background(), testDest, dial)
	require.NoError(t, err)
	require.NoError(t, g.Release(c))

	c2, err := g.Lease(context.Background(), testDest, dial)
	require.NoError(t, err)
	assert.Same(t, c, c2, "idle connection should be reused")
	assert.Equal(t, int32(1), dials.Load())
	require.NoError(t, g.Release(c2))
}

func TestPerDestinationBound(t *testing.T) {
	g := netpool.NewGroup(2, 0)
	defer g.Close()
	dial, dials := pipeDial()
	ctx := context.Background()

	c1, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)
	c2, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)

	leased, idle := g.Stats(testDest)
	assert.Equal(t, 2, leased)
	assert.Equal(t, 0, idle)

	got := make(chan *netpool.Conn, 1)
	go func() {
		c, err := g.Lease(ctx, testDest, dial)
		if err == nil {
			got <- c
		}
	}()

	select {
	case <-got:
		t.Fatal("third lease should block at the limit")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, g.Release(c1))
	select {
	case c3 := <-got:
		assert.Same(t, c1, c3, "released connection goes to the waiter")
		require.NoError(t, g.Release(c3))
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by release")
	}

	require.NoError(t, g.Release(c2))
	assert.Equal(t, int32(2), dials.Load(), "no connection beyond the limit was created")

	leased, idle = g.Stats(testDest)
	assert.LessOrEqual(t, leased+idle, 2)
}

func TestWaitersServedInArrivalOrder(t *testing.T) {
	g := netpool.NewGroup(1, 0)
	defer g.Close()
	dial, _ := pipeDial()
	ctx := context.Background()

	held, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)

	const waiters = 4
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := g.Lease(ctx, testDest, dial)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			g.Release(c)
		}(i)
		time.Sleep(30 * time.Millisecond) // establish arrival order
	}

	require.NoError(t, g.Release(held))
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestDoubleReleaseRejected(t *testing.T) {
	g := netpool.NewGroup(2, 0)
	defer g.Close()
	dial, _ := pipeDial()

	c, err := g.Lease(context.Background(), testDest, dial)
	require.NoError(t, err)
	require.NoError(t, g.Release(c))
	assert.ErrorIs(t, g.Release(c), netpool.ErrConnReleased)
}

func TestReleaseAfterDiscardRejected(t *testing.T) {
	g := netpool.NewGroup(2, 0)
	defer g.Close()
	dial, _ := pipeDial()

	c, err := g.Lease(context.Background(), testDest, dial)
	require.NoError(t, err)
	require.NoError(t, g.Discard(c))
	assert.ErrorIs(t, g.Release(c), netpool.ErrConnReleased)
	assert.ErrorIs(t, g.Discard(c), netpool.ErrConnReleased)
}

func TestDiscardFreesSlotForWaiter(t *testing.T) {
	g := netpool.NewGroup(1, 0)
	defer g.Close()
	dial, dials := pipeDial()
	ctx := context.Background()

	c, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)

	got := make(chan *netpool.Conn, 1)
	go func() {
		c, err := g.Lease(ctx, testDest, dial)
		if err == nil {
			got <- c
		}
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, g.Discard(c))
	select {
	case fresh := <-got:
		assert.NotSame(t, c, fresh, "waiter dials fresh after a discard")
		require.NoError(t, g.Release(fresh))
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by discard")
	}
	assert.Equal(t, int32(2), dials.Load())
}

func TestDialFailureDoesNotConsumeSlot(t *testing.T) {
	g := netpool.NewGroup(1, 0)
	defer g.Close()
	ctx := context.Background()

	boom := errors.New("connection refused")
	_, err := g.Lease(ctx, testDest, func(context.Context) (net.Conn, error) {
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	leased, idle := g.Stats(testDest)
	assert.Zero(t, leased)
	assert.Zero(t, idle)

	// the slot is free again: a working dial must not block
	dial, _ := pipeDial()
	c, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)
	require.NoError(t, g.Release(c))
}

func TestIdleTimeoutDiscardsStaleConnection(t *testing.T) {
	g := netpool.NewGroup(2, 20*time.Millisecond)
	defer g.Close()
	dial, dials := pipeDial()
	ctx := context.Background()

	c, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)
	require.NoError(t, g.Release(c))

	time.Sleep(60 * time.Millisecond)

	c2, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)
	assert.NotSame(t, c, c2, "stale idle connection must not be handed out")
	assert.Equal(t, int32(2), dials.Load())
	require.NoError(t, g.Release(c2))
}

func TestLeaseCancellation(t *testing.T) {
	g := netpool.NewGroup(1, 0)
	defer g.Close()
	dial, _ := pipeDial()

	held, err := g.Lease(context.Background(), testDest, dial)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Lease(ctx, testDest, dial)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned waiter must not eat the next release
	require.NoError(t, g.Release(held))
	c, err := g.Lease(context.Background(), testDest, dial)
	require.NoError(t, err)
	require.NoError(t, g.Release(c))
}

func TestGroupClose(t *testing.T) {
	g := netpool.NewGroup(1, 0)
	dial, _ := pipeDial()
	ctx := context.Background()

	held, err := g.Lease(ctx, testDest, dial)
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		_, err := g.Lease(ctx, testDest, dial)
		waitErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	g.Close()
	select {
	case err := <-waitErr:
		assert.ErrorIs(t, err, netpool.ErrPoolClosed)
	case <-time.After(time.Second):
		t.Fatal("parked waiter not failed by Close")
	}

	_, err = g.Lease(ctx, testDest, dial)
	assert.ErrorIs(t, err, netpool.ErrPoolClosed)

	// a connection coming back after teardown is closed, not pooled
	require.NoError(t, g.Release(held))
}

func TestBoundHoldsUnderContention(t *testing.T) {
	const limit = 3
	g := netpool.NewGroup(limit, 0)
	defer g.Close()
	dial, _ := pipeDial()
	ctx := context.Background()

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c, err := g.Lease(ctx, testDest, dial)
				if err != nil {
					t.Error(err)
					return
				}
				cur := inFlight.Add(1)
				for {
					p := peak.Load()
					if cur <= p || peak.CompareAndSwap(p, cur) {
						break
					}
				}
				inFlight.Add(-1)
				if j%3 == 0 {
					g.Discard(c)
				} else {
					g.Release(c)
				}
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(limit))

	leased, idle := g.Stats(testDest)
	assert.Zero(t, leased)
	assert.LessOrEqual(t, idle, limit)
}
