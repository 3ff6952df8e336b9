// Package transport is the protocol codec: raw bytes in, structured
// responses out. It implements the HTTP/1.x *message syntax* (RFC 9112)
// and nothing above it — which requests to send, whether to reuse the
// connection afterwards, redirects and cookies are all decided by the
// session layer on top.
//
// net/http components are reused on the "semantics" part ([net/url.URL],
// [net/http.Header], etc.)
package transport
