package internal

import (
	"net/http"
	"net/url"

	"github.com/go-sess/sess/internal/model"
)

// redirectMethod applies the conventional client method rewrite for a
// redirect status: 303 always downgrades to GET and drops the body;
// 301/302 do the same except for GET and HEAD, which pass through;
// 307/308 preserve the request verbatim.
func redirectMethod(status int, method string) (string, bool) {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound:
		if method == http.MethodGet || method == http.MethodHead {
			return method, true
		}
		return http.MethodGet, false
	case http.StatusSeeOther:
		return http.MethodGet, false
	case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return method, true
	}
	return "", false
}

// resolveRedirect inspects resp and either reports that the chain
// stops here (nil, false) or builds the follow-up request. A Location
// that is relative resolves against the request URL.
func resolveRedirect(pr *model.PreparedRequest, resp *model.Response) (*model.Request, bool) {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return nil, false
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, false
	}
	u, err := url.Parse(loc)
	if err != nil {
		return nil, false
	}
	target := pr.U.ResolveReference(u)

	method, keepBody := redirectMethod(resp.StatusCode, pr.Method)
	if keepBody && pr.Request.Body != nil && !pr.Replayable() {
		// a one-shot streaming body cannot be replayed across a hop;
		// hand the redirect response back to the caller instead
		return nil, false
	}

	next := &model.Request{
		Method:       method,
		URL:          target.String(),
		Header:       pr.Request.Header.Clone(),
		MaxRedirects: pr.Request.MaxRedirects,
	}
	if keepBody {
		next.Body = pr.Request.Body
	}
	if next.Header != nil {
		if target.Hostname() != pr.U.Hostname() {
			// don't leak credentials across hosts
			next.Header.Del("Authorization")
			next.Header.Del("Cookie")
		}
		if !keepBody {
			next.Header.Del("Content-Type")
		}
	}
	return next, true
}
