// Package normalize canonicalizes URLs and tracks which ones a crawl has
// already seen. Canonicalization rules: scheme and host are lowercased,
// default ports are stripped, fragments are discarded, and path case is
// preserved.
package normalize

import (
	"errors"
	"net/url"
	"strings"

	"github.com/theaidguild/spider/internal/errs"
)

var errNotAbsolute = errors.New("url is not absolute")

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ftp":   "21",
}

// ParseAbsolute parses s as an absolute URL and returns its canonical form.
func ParseAbsolute(s string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, &errs.InvalidURLError{Input: s, Err: err}
	}
	if !u.IsAbs() {
		return nil, &errs.InvalidURLError{Input: s, Err: errNotAbsolute}
	}
	return Canonical(u), nil
}

// Canonical returns a canonicalized copy of u: lowercased scheme/host,
// default port stripped, fragment discarded. Path case and query order are
// preserved.
func Canonical(u *url.URL) *url.URL {
	c := *u
	c.Scheme = strings.ToLower(c.Scheme)
	host := strings.ToLower(c.Hostname())
	port := c.Port()
	if port != "" && defaultPorts[c.Scheme] == port {
		c.Host = host
	} else if port != "" {
		c.Host = host + ":" + port
	} else {
		c.Host = host
	}
	c.Fragment = ""
	c.RawFragment = ""
	return &c
}

// ConvertAbsPath resolves href against base and returns the canonical
// result. If href is already absolute it is canonicalized directly,
// ignoring base.
func ConvertAbsPath(base *url.URL, href string) (*url.URL, error) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return nil, &errs.InvalidURLError{Input: href, Err: err}
	}
	if ref.IsAbs() {
		return Canonical(ref), nil
	}
	if base == nil {
		return nil, &errs.InvalidURLError{Input: href, Err: err}
	}
	resolved := base.ResolveReference(ref)
	return Canonical(resolved), nil
}

// PrepareURL fills in a missing scheme (defaulting to https) and returns
// the canonical form.
func PrepareURL(s string) (*url.URL, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, &errs.InvalidURLError{Input: s}
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return ParseAbsolute(s)
}

// FlipHTTPHTTPS swaps the URL's scheme between http and https, preserving
// every other component.
func FlipHTTPHTTPS(u *url.URL) *url.URL {
	c := *u
	switch c.Scheme {
	case "http":
		c.Scheme = "https"
	case "https":
		c.Scheme = "http"
	}
	return &c
}

// GetLastSegment returns the last non-empty path segment of p, or "" if
// none exists.
func GetLastSegment(p string) string {
	p = strings.TrimRight(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx < 0 {
		return p
	}
	return p[idx+1:]
}
