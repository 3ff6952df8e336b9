// Package errs defines the error kinds surfaced by a session. Callers
// see exactly one of these (or a successful response): transport
// failures, malformed peer framing, deadline expiry, or a non-success
// status they asked to be checked.
package errs

import (
	"fmt"
	"strings"
)

// ConnectionError wraps a transport-level open/read/write failure.
// These are the only errors a session will consider retrying, since
// a peer closing an idle connection between the pool's liveness check
// and the write is an expected race rather than a hard failure.
type ConnectionError struct {
	Op  string // "dial", "write" or "read"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ProtocolError reports response framing the codec could not parse.
// Never retried: the peer is speaking, just not HTTP.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "malformed response: " + e.Reason
}

// TimeoutError reports that the per-request deadline expired, whether
// while waiting for a pool slot or during the exchange itself.
type TimeoutError struct {
	Phase string // "lease", "write" or "read"
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timed out during %s: %v", e.Phase, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Timeout implements the conventional net.Error-style probe.
func (e *TimeoutError) Timeout() bool { return true }

// StatusError is produced by Response.ErrorForStatus for 4xx and 5xx
// responses. A non-2xx status is not an error by itself; this exists
// for callers that want one.
type StatusError struct {
	StatusCode int
	Status     string // reason phrase, e.g. "NOT FOUND"
}

func (e *StatusError) Error() string {
	kind := "Client"
	if e.StatusCode >= 500 {
		kind = "Server"
	}
	return fmt.Sprintf("%d %s Error: %s", e.StatusCode, kind, strings.ToUpper(e.Status))
}
