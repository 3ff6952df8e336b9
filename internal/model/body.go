package model

import (
	"io"
	"net/http"
)

// TrackedBody wraps a response body so its owner can tell, at close
// time, whether the stream was read to the end. A body closed before
// EOF leaves unread bytes on the connection, which rules out reuse.
// It is not safe for concurrent use; a response body has one reader.
type TrackedBody struct {
	r       io.Reader
	onClose func(drained bool) error
	eof     bool
	closed  bool
}

// TrackBody wraps r; onClose runs exactly once, on the first Close,
// and receives whether the body was fully consumed.
func TrackBody(r io.Reader, onClose func(drained bool) error) *TrackedBody {
	t := &TrackedBody{r: r, onClose: onClose}
	if r == nil || r == http.NoBody {
		t.r = http.NoBody
		t.eof = true
	}
	return t
}

func (t *TrackedBody) Read(p []byte) (int, error) {
	if t.closed {
		return 0, http.ErrBodyReadAfterClose
	}
	n, err := t.r.Read(p)
	if err == io.EOF {
		t.eof = true
	}
	return n, err
}

func (t *TrackedBody) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return t.onClose(t.eof)
}

// Drained reports whether the body was read through to EOF.
func (t *TrackedBody) Drained() bool { return t.eof }
