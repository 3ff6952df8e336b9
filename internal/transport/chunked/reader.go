package chunked

import (
	"bufio"
	"errors"
	"io"
)

// NewReader decodes a chunked transfer coding stream. The returned
// reader yields io.EOF at the zero-length terminal chunk.
func NewReader(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &reader{Reader: br}
}

type reader struct {
	*bufio.Reader
	chunk       io.Reader
	count, size int64
	sawTerminal bool
}

func (c *reader) readChunkSize() (size uint64, err error) {
	cnt := 0
	isPref, ext := true, false
	for isPref {
		var line []byte
		line, isPref, err = c.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		for _, b := range line {
			if ext {
				continue
			}
			if b == ';' || b == ' ' || b == '\t' {
				// chunk extensions (RFC 9112 §7.1.1) are ignored
				ext = true
				continue
			}
			cnt++
			switch {
			case '0' <= b && b <= '9':
				b = b - '0'
			case 'a' <= b && b <= 'f':
				b = b - 'a' + 10
			case 'A' <= b && b <= 'F':
				b = b - 'A' + 10
			default:
				return 0, errors.New("invalid byte in chunk length")
			}
			size <<= 4
			size |= uint64(b)
		}
		if cnt >= 16 {
			return 0, errors.New("http chunk length too large")
		}
	}
	if cnt == 0 {
		return 0, errors.New("empty chunk length")
	}
	return
}

func (c *reader) Read(p []byte) (n int, err error) {
	if c.sawTerminal {
		return 0, io.EOF
	}
	if c.chunk == nil {
		l, err := c.readChunkSize()
		if err != nil {
			return 0, err
		}
		if l == 0 {
			c.sawTerminal = true
			// trailing CRLF after the terminal chunk, if present
			c.discardCRLF()
			return 0, io.EOF
		}
		c.chunk = io.LimitReader(c.Reader, int64(l))
		c.size = int64(l)
		c.count = 0
	}
	n, err = c.chunk.Read(p)
	c.count += int64(n)
	if err == io.EOF {
		if c.count != c.size {
			return n, io.ErrUnexpectedEOF
		}
		if err := c.discardCRLF(); err != nil {
			return n, err
		}
		c.chunk = nil
		return n, nil
	}
	return
}

func (c *reader) discardCRLF() error {
	cr, err := c.Reader.ReadByte()
	if err != nil {
		return nil // terminal chunk at stream end may omit it
	}
	lf, err := c.Reader.ReadByte()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	if cr != '\r' || lf != '\n' {
		return errors.New("malformed chunked encoding")
	}
	return nil
}
