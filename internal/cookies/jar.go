// Package cookies implements the session's cookie store: a
// domain/path-scoped table consulted before each exchange and updated
// from Set-Cookie headers after it. Matching follows the subdomain
// rule without public-suffix awareness: a cookie for example.com is
// sent to sub.example.com unless it is host-only.
package cookies

import (
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/idna"
)

type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string

	// Expires is the zero value for session cookies, which never
	// expire while the jar lives.
	Expires  time.Time
	Secure   bool
	HostOnly bool
}

func (c Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

type key struct {
	domain, path, name string
}

// Jar is an in-memory cookie table. Safe for concurrent use; all
// mutation happens under one mutex so no caller observes a partial
// update.
type Jar struct {
	mu      sync.Mutex
	entries map[key]Cookie
	now     func() time.Time // test hook
}

func NewJar() *Jar {
	return &Jar{entries: map[key]Cookie{}, now: time.Now}
}

// Set upserts a single cookie. An entry with the same
// (domain, path, name) is overwritten.
func (j *Jar) Set(c Cookie) {
	c.Domain = CanonicalHost(c.Domain)
	if c.Path == "" {
		c.Path = "/"
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[key{c.Domain, c.Path, c.Name}] = c
}

// Applicable returns the cookies to send to host for the given request
// path, longest path first. Expired entries are pruned as they are
// encountered, so they disappear from results even if never swept.
func (j *Jar) Applicable(host, path string, secure bool) []Cookie {
	host = CanonicalHost(host)
	if path == "" {
		path = "/"
	}
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()
	var out []Cookie
	for k, c := range j.entries {
		if c.expired(now) {
			delete(j.entries, k)
			continue
		}
		if c.Secure && !secure {
			continue
		}
		if !domainMatch(host, c.Domain, c.HostOnly) || !pathMatch(path, c.Path) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, k int) bool {
		if len(out[i].Path) != len(out[k].Path) {
			return len(out[i].Path) > len(out[k].Path)
		}
		return out[i].Name < out[k].Name
	})
	return out
}

// Update parses the given Set-Cookie header values from a response
// served by host for reqPath and upserts them. A cookie without a
// Domain attribute is host-only; Max-Age wins over Expires.
func (j *Jar) Update(host, reqPath string, setCookies []string) {
	if len(setCookies) == 0 {
		return
	}
	host = CanonicalHost(host)
	now := j.now()

	// net/http already knows how to parse Set-Cookie
	parsed := (&http.Response{Header: http.Header{"Set-Cookie": setCookies}}).Cookies()

	j.mu.Lock()
	defer j.mu.Unlock()
	for _, hc := range parsed {
		c := Cookie{
			Name:   hc.Name,
			Value:  hc.Value,
			Secure: hc.Secure,
		}
		if hc.Domain == "" {
			c.Domain, c.HostOnly = host, true
		} else {
			c.Domain = CanonicalHost(strings.TrimPrefix(hc.Domain, "."))
			// RFC 6265 §5.3 step 6: ignore a cookie whose Domain
			// attribute does not cover the host that set it
			if !domainMatch(host, c.Domain, false) {
				continue
			}
		}
		if hc.Path == "" || !strings.HasPrefix(hc.Path, "/") {
			c.Path = defaultPath(reqPath)
		} else {
			c.Path = hc.Path
		}
		switch {
		case hc.MaxAge < 0:
			c.Expires = now.Add(-time.Second) // immediate expiry
		case hc.MaxAge > 0:
			c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		default:
			c.Expires = hc.Expires
		}
		j.entries[key{c.Domain, c.Path, c.Name}] = c
	}
}

// Header renders cookies as a Cookie request header value.
func Header(cookies []Cookie) string {
	var b strings.Builder
	for i, c := range cookies {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}

// CanonicalHost lowercases host, strips any port, and punycodes
// non-ASCII labels, mirroring what the net/http cookie jar does.
func CanonicalHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if !isASCII(host) {
		if a, err := idna.Lookup.ToASCII(host); err == nil {
			host = a
		}
	}
	return host
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func domainMatch(host, domain string, hostOnly bool) bool {
	if host == domain {
		return true
	}
	if hostOnly {
		return false
	}
	return strings.HasSuffix(host, "."+domain)
}

// pathMatch implements RFC 6265 §5.1.4 path matching.
func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

// defaultPath derives the cookie path from the request path per
// RFC 6265 §5.1.4: everything up to the rightmost slash.
func defaultPath(reqPath string) string {
	i := strings.LastIndex(reqPath, "/")
	if i <= 0 || !strings.HasPrefix(reqPath, "/") {
		return "/"
	}
	return reqPath[:i]
}
