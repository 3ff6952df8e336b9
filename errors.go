package sess

import (
	"github.com/go-sess/sess/internal"
	"github.com/go-sess/sess/internal/errs"
	"github.com/go-sess/sess/netpool"
)

// The error kinds a Session surfaces. Transport failures are
// ConnectionError and are retried within the session's budget;
// ProtocolError, TimeoutError and TooManyRedirectsError are final.
type ConnectionError = errs.ConnectionError
type ProtocolError = errs.ProtocolError
type TimeoutError = errs.TimeoutError
type StatusError = errs.StatusError
type TooManyRedirectsError = internal.TooManyRedirectsError

var (
	ErrPoolClosed   = netpool.ErrPoolClosed
	ErrConnReleased = netpool.ErrConnReleased
)
