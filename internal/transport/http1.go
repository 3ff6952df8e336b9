package transport

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/go-sess/sess/internal/errs"
	"github.com/go-sess/sess/internal/model"
	"github.com/go-sess/sess/internal/transport/chunked"
)

type http1 struct {
}

func (t *http1) Write(w io.Writer, r *model.PreparedRequest) error {
	body, err := r.GetBody() // can write body
	if err != nil {
		return err
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
	}

	chunk := body != nil && r.ContentLength == -1
	if err := t.writeHeader(w, r, chunk); err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	if chunk {
		cw := chunked.NewWriter(w)
		if _, err := io.Copy(cw, body); err != nil {
			return err
		}
		return cw.Close()
	}
	_, err = io.Copy(w, body)
	return err
}

// writeHeader writes the request line and header block, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.example.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t *http1) writeHeader(w io.Writer, r *model.PreparedRequest, chunk bool) error {
	header := bufio.NewWriter(w) // default bufsize is 4096

	if _, err := header.WriteString(r.Method); err != nil {
		return err
	}
	header.WriteByte(' ')
	header.WriteString(r.U.RequestURI())
	header.WriteString(" HTTP/1.1\r\n")

	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	if r.ContentLength != -1 {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	} else if chunk {
		header.WriteString("Transfer-Encoding: chunked\r\n")
	}
	for k, v := range r.Header {
		for _, v := range v {
			header.WriteString(k)
			header.WriteString(": ")
			header.WriteString(v)
			if _, err := header.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	if _, err := header.WriteString("\r\n"); err != nil {
		return err
	}
	return header.Flush()
}

func (t *http1) Read(r io.Reader, req *model.PreparedRequest, resp *model.Response) (err error) {
	tp := textproto.NewReader(bufio.NewReader(r))

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok || !strings.HasPrefix(proto, "HTTP/1.") {
		return &errs.ProtocolError{Reason: "bad status line " + strconv.Quote(line)}
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		return &errs.ProtocolError{Reason: "bad status code " + strconv.Quote(statusCode)}
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		return &errs.ProtocolError{Reason: "bad status code " + strconv.Quote(statusCode)}
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		if _, ok := err.(textproto.ProtocolError); ok {
			return &errs.ProtocolError{Reason: err.Error()}
		}
		return err
	}
	resp.Header = http.Header(mimeHeader)
	resp.Close = shouldClose(resp.Proto, req.Header, resp.Header)

	return t.readTransfer(tp.R, req, resp)
}

func (t *http1) readTransfer(r *bufio.Reader, req *model.PreparedRequest, resp *model.Response) error {
	if noResponseBody(req.Method, resp.StatusCode) {
		resp.Body = http.NoBody
		return nil
	}

	contentLens := resp.Header["Content-Length"]

	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				return &errs.ProtocolError{Reason: fmt.Sprintf("multiple distinct Content-Length headers %q", contentLens)}
			}
		}

		// deduplicate Content-Length
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)

		contentLens = resp.Header["Content-Length"]
	}

	if strings.EqualFold(resp.Header.Get("Transfer-Encoding"), "chunked") {
		resp.ContentLength = -1
		resp.Body = io.NopCloser(chunked.NewReader(r))
		return nil
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		n, err := strconv.ParseUint(textproto.TrimString(contentLens[0]), 10, 63)
		if err != nil {
			return &errs.ProtocolError{Reason: "bad Content-Length " + strconv.Quote(contentLens[0])}
		}
		cl = int64(n)
	}

	resp.ContentLength = cl
	switch {
	case cl > 0:
		resp.Body = io.NopCloser(&lengthReader{r: io.LimitReader(r, cl), remain: cl})
	case cl == 0:
		resp.Body = http.NoBody
	default:
		// HTTP/1.0 style: body runs until the peer closes, which also
		// rules out reusing the connection
		resp.Close = true
		resp.Body = io.NopCloser(untilEOF{r})
	}
	return nil
}

// lengthReader turns a peer hangup before Content-Length bytes into
// io.ErrUnexpectedEOF instead of a clean EOF.
type lengthReader struct {
	r      io.Reader
	remain int64
}

func (l *lengthReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.remain -= int64(n)
	if err == io.EOF && l.remain > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// untilEOF masks the non-EOF error a closed connection surfaces once
// the peer is done sending an unframed body.
type untilEOF struct{ r io.Reader }

func (u untilEOF) Read(p []byte) (int, error) {
	n, err := u.r.Read(p)
	if err != nil && err != io.EOF && n == 0 {
		err = io.EOF
	}
	return n, err
}

func noResponseBody(method string, status int) bool {
	return method == http.MethodHead ||
		(status >= 100 && status < 200) ||
		status == http.StatusNoContent ||
		status == http.StatusNotModified
}

// shouldClose decides the connection directive for one exchange:
// HTTP/1.1 defaults to keep-alive unless either side said close,
// HTTP/1.0 defaults to close unless the response said keep-alive.
func shouldClose(proto string, reqHeader, respHeader http.Header) bool {
	if hasToken(reqHeader, "Connection", "close") {
		return true
	}
	if proto == "HTTP/1.0" {
		return !hasToken(respHeader, "Connection", "keep-alive")
	}
	return hasToken(respHeader, "Connection", "close")
}

func hasToken(h http.Header, field, token string) bool {
	for _, v := range h.Values(field) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(t), token) {
				return true
			}
		}
	}
	return false
}
