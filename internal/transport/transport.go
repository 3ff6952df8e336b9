package transport

import (
	"io"

	"github.com/go-sess/sess/internal/model"
)

// Codec turns prepared requests into wire bytes and wire bytes into
// structured responses. The session treats it as a black box.
type Codec interface {
	Write(w io.Writer, req *model.PreparedRequest) error
	Read(r io.Reader, req *model.PreparedRequest, resp *model.Response) error
}

var http1Codec Codec = &http1{}

// Write serializes req onto w using the HTTP/1.1 message syntax.
func Write(w io.Writer, req *model.PreparedRequest) error {
	return http1Codec.Write(w, req)
}

// Read parses one response to req from r into resp, setting
// resp.Close per the protocol version and Connection directives.
func Read(r io.Reader, req *model.PreparedRequest, resp *model.Response) error {
	return http1Codec.Read(r, req, resp)
}
