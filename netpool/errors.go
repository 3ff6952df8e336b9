package netpool

import "errors"

var (
	// ErrPoolClosed is returned by Lease after the group was torn down.
	ErrPoolClosed = errors.New("netpool: pool closed")

	// ErrConnReleased is returned when a connection is released or
	// discarded twice, or used after it was handed back. These are
	// caller bugs and are reported rather than silently absorbed.
	ErrConnReleased = errors.New("netpool: connection is not leased")
)
