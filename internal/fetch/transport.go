// Package fetch implements the crawl engine's transport layer: a
// retrying, proxy-aware HTTP client and a CDP-driven browser path,
// unified behind a single Fetch result type the orchestrator consumes.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/theaidguild/spider/internal/errs"
	"github.com/theaidguild/spider/internal/iofile"
)

// streamThresholdBytes is the Content-Length above which doOnce streams a
// response body to disk instead of buffering it. A body whose length is not
// known up front is buffered in memory whatever its size (bounded only by
// MaxPageBytes, when set).
const streamThresholdBytes = 8 << 20 // 8MiB

// TransportConfig mirrors spec.md §6's Transport configuration block.
type TransportConfig struct {
	UserAgent           string
	Headers             map[string]string
	HTTP2PriorKnowledge bool
	AcceptInvalidCerts  bool
	Proxies             []string
	RedirectLimit       int
	Retry               int
	MaxPageBytes        int64 // 0 means unlimited
	RequestTimeout      time.Duration

	// FullResources, when true, streams every response body to disk via
	// iofile instead of buffering it (spec.md §6 full_resources). Bodies
	// larger than streamThresholdBytes stream to disk regardless of this
	// flag, once Content-Length reveals that up front.
	FullResources bool
	// StreamDir is the directory streamed bodies are written under.
	// Empty means os.TempDir().
	StreamDir string
}

// Result is what a fetch attempt produces, successful or not. The
// orchestrator turns this into a Page regardless of outcome: transport
// failures are carried as Err, not returned as a hard error, except for
// InvalidURLError which the caller should treat as non-recoverable for
// that item.
type Result struct {
	FinalURL   string
	StatusCode int
	Header     http.Header
	Body       []byte
	// BodyFile names the on-disk path the body was streamed to, set
	// instead of Body when the response was large or FullResources
	// forced streaming (spec.md §3: "(or empty on streamed-to-disk)").
	BodyFile  string
	Truncated bool
	Attempt   int
	Err       error
}

// Client fetches URLs over plain HTTP(S), retrying transport failures
// with exponential backoff and rotating through configured proxies.
type Client struct {
	cfg        TransportConfig
	httpClient []*http.Client // one per proxy, or a single no-proxy client when Proxies is empty
	nextProxy  atomic.Uint32

	backend   iofile.Backend
	streamDir string
	streamSeq atomic.Uint64
}

// NewClient builds a Client from cfg, constructing one *http.Client per
// configured proxy (so each hedge attempt can bind to a distinct egress
// IP; retries inside one Fetch reuse its client) and a direct client when
// no proxies are configured.
func NewClient(cfg TransportConfig) (*Client, error) {
	streamDir := cfg.StreamDir
	if streamDir == "" {
		streamDir = os.TempDir()
	}
	c := &Client{cfg: cfg, backend: iofile.NewBackend(), streamDir: streamDir}
	if len(cfg.Proxies) == 0 {
		c.httpClient = []*http.Client{newHTTPClient(cfg, nil)}
		return c, nil
	}
	c.httpClient = make([]*http.Client, 0, len(cfg.Proxies))
	for _, raw := range cfg.Proxies {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, &errs.InvalidURLError{Input: raw, Err: err}
		}
		c.httpClient = append(c.httpClient, newHTTPClient(cfg, u))
	}
	return c, nil
}

func newHTTPClient(cfg TransportConfig, proxy *url.URL) *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   cfg.HTTP2PriorKnowledge,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: cfg.AcceptInvalidCerts},
	}
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	redirectLimit := cfg.RedirectLimit
	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= redirectLimit {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// proxyIndex picks the client to use for attempt, rotating round-robin
// across configured proxies so a hedge's duplicate fetch prefers a
// different egress path than the primary when more than one is
// available (spec.md §4.13 "different proxy if available").
func (c *Client) proxyIndex(attempt int) int {
	if len(c.httpClient) == 1 {
		return 0
	}
	if attempt == 0 {
		return int(c.nextProxy.Add(1)-1) % len(c.httpClient)
	}
	return (int(c.nextProxy.Load()) + attempt) % len(c.httpClient)
}

// Fetch performs a GET for rawURL, retrying transport-level failures up
// to cfg.Retry times with exponential backoff. attempt selects which
// underlying client (and therefore which proxy) to bind this whole
// retry sequence to — the orchestrator passes 0 for a primary fetch and
// 1, 2, ... for hedge duplicates.
func (c *Client) Fetch(ctx context.Context, rawURL string, attempt int) Result {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return Result{Err: &errs.InvalidURLError{Input: rawURL, Err: err}}
	}

	client := c.httpClient[c.proxyIndex(attempt)]
	backoff := 250 * time.Millisecond
	var lastErr error

	for try := 0; try <= c.cfg.Retry; try++ {
		res, err := c.doOnce(ctx, client, rawURL)
		if err == nil {
			res.Attempt = try
			return res
		}
		lastErr = err
		if ctx.Err() != nil {
			return Result{Err: &errs.CancelledError{Reason: ctx.Err().Error()}, Attempt: try}
		}
		if try < c.cfg.Retry {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return Result{Err: &errs.CancelledError{Reason: ctx.Err().Error()}, Attempt: try}
			}
			backoff *= 2
		}
	}
	return Result{Err: lastErr, Attempt: c.cfg.Retry}
}

func (c *Client) doOnce(ctx context.Context, client *http.Client, rawURL string) (Result, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if c.cfg.RequestTimeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, &errs.InvalidURLError{Input: rawURL, Err: err}
	}
	ua := c.cfg.UserAgent
	if ua == "" {
		ua = "spider/1.0 (+https://github.com/theaidguild/spider)"
	}
	req.Header.Set("User-Agent", ua)
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, &errs.TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if c.cfg.FullResources || resp.ContentLength > streamThresholdBytes {
		path, err := c.streamToDisk(ctx, resp.Body, rawURL)
		if err != nil {
			return Result{}, err
		}
		return Result{
			FinalURL:   resp.Request.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			BodyFile:   path,
		}, nil
	}

	var body []byte
	truncated := false
	if c.cfg.MaxPageBytes > 0 {
		limited := io.LimitReader(resp.Body, c.cfg.MaxPageBytes+1)
		body, err = io.ReadAll(limited)
		if int64(len(body)) > c.cfg.MaxPageBytes {
			body = body[:c.cfg.MaxPageBytes]
			truncated = true
		}
	} else {
		body, err = io.ReadAll(resp.Body)
	}
	if err != nil {
		return Result{}, &errs.ProtocolError{URL: rawURL, Err: err}
	}

	return Result{
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Truncated:  truncated,
	}, nil
}

// streamToDisk copies r into a fresh file under c.streamDir via iofile,
// leaving Result.Body empty (spec.md §3) for bodies too large to hold in
// memory, or whenever FullResources is set.
func (c *Client) streamToDisk(ctx context.Context, r io.Reader, rawURL string) (string, error) {
	name := fmt.Sprintf("body-%d.bin", c.streamSeq.Add(1))
	path := filepath.Join(c.streamDir, name)

	sw, err := iofile.StreamingWriterFor(ctx, c.backend, c.streamDir, path)
	if err != nil {
		return "", err
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := r.Read(buf)
		if n > 0 {
			if werr := sw.Write(ctx, buf[:n]); werr != nil {
				sw.Close()
				return "", werr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			sw.Close()
			return "", &errs.ProtocolError{URL: rawURL, Err: rerr}
		}
	}
	if err := sw.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// IsHTML reports whether res's Content-Type header names an HTML body,
// used by the orchestrator's "only_html" content filter.
func IsHTML(res Result) bool {
	ct := res.Header.Get("Content-Type")
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// IsFeed reports whether res's Content-Type header names an RSS or Atom
// feed body, used by the orchestrator to route link extraction through a
// feed parser instead of HTML anchor scanning.
func IsFeed(res Result) bool {
	ct := res.Header.Get("Content-Type")
	for _, feedType := range []string{"application/rss+xml", "application/atom+xml", "application/xml", "text/xml"} {
		if strings.Contains(ct, feedType) {
			return true
		}
	}
	return false
}
