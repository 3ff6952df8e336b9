package internal

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// retryable reports whether a transport failure has some prospect of
// succeeding on a fresh connection. A reused idle connection closed by
// the peer between the pool's liveness check and our write shows up as
// a reset, a broken pipe, or an EOF before the status line — all
// expected races, none of them hard failures. Cancellation and
// deadline expiry are final.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.EPIPE:
			return true
		}
	}
	return false
}
