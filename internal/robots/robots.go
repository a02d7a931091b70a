// Package robots implements the crawl engine's robots.txt policy engine:
// parsing, per-user-agent group selection, and the status-code-aware
// allow/disallow decision described by the crawl spec.
//
// Group selection and rule precedence are delegated to
// github.com/temoto/robotstxt, the same parser the reference crawler tools
// use. Request-rate is a robots.txt extension that library does not parse,
// so Engine scans the raw lines for it itself, keyed by the same
// lowercased user-agent tokens.
package robots

import (
	"bufio"
	"net/url"
	"strconv"
	"strings"

	"github.com/temoto/robotstxt"
)

// Rate is the "requests per N seconds" extension some sites publish via a
// Request-rate directive.
type Rate struct {
	Requests int
	Seconds  int
}

// Engine holds the parsed robots.txt for a single host plus the HTTP
// status it was fetched with. An Engine that was never given a successful
// read defaults to "disallow everything" for safety.
type Engine struct {
	data       *robotstxt.RobotsData
	reqRates   map[string]Rate
	sitemaps   []string
	fetchState fetchState
}

type fetchState int

const (
	stateUnread fetchState = iota
	stateOK
	stateForbidden   // 401 or 403: disallow all
	stateClientOther // 4xx (excl 401/403) or 5xx up to 500: allow all
)

// NewUnread returns an Engine that behaves as if robots.txt was never
// fetched: CanFetch returns false for every URL, per the safety default.
func NewUnread() *Engine {
	return &Engine{fetchState: stateUnread}
}

// NewFromStatus builds an Engine purely from an HTTP status code, for the
// case where the body could not be used (network failure surfaced as a
// status, or a non-2xx response). status 0 is treated like "unread."
func NewFromStatus(status int) *Engine {
	switch {
	case status == 401 || status == 403:
		return &Engine{fetchState: stateForbidden}
	case status >= 400 && status < 500:
		return &Engine{fetchState: stateClientOther}
	case status >= 500 && status < 600:
		return &Engine{fetchState: stateClientOther}
	default:
		return &Engine{fetchState: stateUnread}
	}
}

// Parse parses robots.txt content fetched with the given HTTP status.
// status must be in [200,300) for the body to be honored; otherwise the
// status-only policy from NewFromStatus applies and body is ignored.
func Parse(status int, body []byte) (*Engine, error) {
	if status < 200 || status >= 300 {
		return NewFromStatus(status), nil
	}
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, err
	}
	return &Engine{
		data:       data,
		reqRates:   parseRequestRates(body),
		sitemaps:   parseSitemaps(body),
		fetchState: stateOK,
	}, nil
}

// parseSitemaps scans raw robots.txt lines for Sitemap directives, which
// the robotstxt library doesn't surface and which aren't scoped to any
// user-agent group.
func parseSitemaps(body []byte) []string {
	var sitemaps []string
	sc := bufio.NewScanner(strings.NewReader(string(body)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		field, value, ok := splitDirective(line)
		if !ok {
			continue
		}
		if strings.EqualFold(field, "sitemap") && value != "" {
			sitemaps = append(sitemaps, value)
		}
	}
	return sitemaps
}

// Sitemaps returns the Sitemap URLs declared in robots.txt, if any.
func (e *Engine) Sitemaps() []string { return e.sitemaps }

// parseRequestRates scans raw robots.txt lines for Request-rate
// directives, associating each with the nearest preceding group of
// User-agent lines (mirroring the same group-boundary rules temoto applies
// for Allow/Disallow: blank lines close a group, consecutive User-agent
// lines share one).
func parseRequestRates(body []byte) map[string]Rate {
	rates := make(map[string]Rate)
	var currentUAs []string
	sawRuleSinceUA := false

	sc := bufio.NewScanner(strings.NewReader(string(body)))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			currentUAs = nil
			sawRuleSinceUA = false
			continue
		}
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
			if line == "" {
				continue
			}
		}
		field, value, ok := splitDirective(line)
		if !ok {
			continue
		}
		switch strings.ToLower(field) {
		case "user-agent":
			ua := strings.ToLower(strings.TrimSpace(value))
			if sawRuleSinceUA {
				currentUAs = nil
				sawRuleSinceUA = false
			}
			currentUAs = append(currentUAs, ua)
		case "allow", "disallow", "crawl-delay":
			sawRuleSinceUA = true
		case "request-rate":
			if r, ok := parseRate(value); ok {
				for _, ua := range currentUAs {
					rates[ua] = r
				}
			}
			sawRuleSinceUA = true
		}
	}
	return rates
}

func splitDirective(line string) (field, value string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

// parseRate parses "N/M" or "N/Ms" style values into a Rate.
func parseRate(v string) (Rate, bool) {
	parts := strings.SplitN(v, "/", 2)
	if len(parts) != 2 {
		return Rate{}, false
	}
	reqs, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Rate{}, false
	}
	secStr := strings.TrimSpace(parts[1])
	secStr = strings.TrimSuffix(secStr, "s")
	secs, err := strconv.Atoi(secStr)
	if err != nil {
		secs = 1
	}
	return Rate{Requests: reqs, Seconds: secs}, true
}

// groupFor selects the group whose user-agent token is the first
// case-insensitive substring match of ua (or the default "*" group),
// matching the precedence rule in the spec.
func (e *Engine) groupFor(ua string) *robotstxt.Group {
	if e.data == nil {
		return nil
	}
	return e.data.FindGroup(ua)
}

// CanFetch reports whether ua may fetch u, applying the status-based
// policy first and the parsed groups second.
func (e *Engine) CanFetch(ua string, u *url.URL) bool {
	switch e.fetchState {
	case stateForbidden:
		return false
	case stateClientOther:
		return true
	case stateUnread:
		return false
	}
	if e.data == nil {
		return true
	}
	group := e.groupFor(ua)
	if group == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return group.Test(path)
}

// GetCrawlDelay returns the crawl-delay for ua if the robots.txt declared
// one, else 0.
func (e *Engine) GetCrawlDelay(ua string) (delaySeconds float64, ok bool) {
	if e.data == nil {
		return 0, false
	}
	group := e.groupFor(ua)
	if group == nil || group.CrawlDelay <= 0 {
		return 0, false
	}
	return group.CrawlDelay.Seconds(), true
}

// GetReqRate returns the request-rate extension for ua, if declared.
func (e *Engine) GetReqRate(ua string) (Rate, bool) {
	if e.reqRates == nil {
		return Rate{}, false
	}
	key := strings.ToLower(ua)
	if r, ok := e.reqRates[key]; ok {
		return r, true
	}
	if r, ok := e.reqRates["*"]; ok {
		return r, true
	}
	return Rate{}, false
}
