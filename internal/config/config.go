// Package config defines the crawl engine's Config, its Builder, and the
// Logger interface every internal component accepts. Fatal configuration
// errors surface from Build(), before any fetch is dispatched.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/theaidguild/spider/internal/fingerprint"
)

// Logger is the narrow interface internal components log through. The
// standard library's *log.Logger satisfies it, so a caller that wants
// structured logging only needs to adapt one method.
type Logger interface {
	Printf(format string, args ...any)
}

var _ Logger = (*log.Logger)(nil)

// Config is the fully validated, immutable crawl configuration. Build it
// with NewBuilder and Build().
type Config struct {
	// Crawling
	RespectRobotsTxt bool
	Subdomains       bool
	TLD              bool
	Depth            int
	Delay            time.Duration
	RequestTimeout   time.Duration // 0 means no per-request timeout
	CrawlTimeout     time.Duration // 0 means no overall timeout

	// Filtering
	BlacklistURL    []string
	WhitelistURL    []string
	ExternalDomains bool

	// Transport
	UserAgent           string
	Headers             map[string]string
	HTTP2PriorKnowledge bool
	AcceptInvalidCerts  bool
	Proxies             []string
	RedirectLimit       int
	Retry               int
	MaxPageBytes        int64

	// Content
	FullResources   bool
	BodyStreamDir   string // default: os.TempDir(); where full_resources/oversized bodies stream to
	OnlyHTML        bool
	ReturnPageLinks bool
	FollowSitemaps  bool // seed additional URLs from robots.txt's Sitemap directives
	Readability     bool // run the readability extractor before Page.XML serializes

	// Browser
	UseChrome          bool
	StealthMode        fingerprint.Tier
	ViewportWidth      int
	ViewportHeight     int
	WaitForIdleNetwork bool
	WaitForDelay       time.Duration
	WaitForSelector    string
	EvaluateOnNewDoc   string

	// Budgets: pattern -> max pages under that path prefix. "*" bounds
	// the crawl's total page count.
	Budget map[string]int

	// Performance
	SharedQueue bool

	// Hedging
	HedgeEnabled   bool
	HedgeDelay     time.Duration
	HedgeMaxHedges int

	// Dedup
	DedupEnabled bool
	DedupCrawlID string
	DedupBaseDir string
	DedupPersist bool

	Logger Logger

	startURL string
}

// Builder accumulates options before Build validates and freezes them.
type Builder struct {
	cfg Config
	err error
}

// NewBuilder starts a Builder for a crawl rooted at startURL, with the
// defaults spec.md documents implicitly through its examples: robots
// respected, one retry, a redirect cap of 10, and a 30s request timeout.
func NewBuilder(startURL string) *Builder {
	return &Builder{cfg: Config{
		startURL:         startURL,
		RespectRobotsTxt: true,
		Depth:            -1, // unlimited
		RequestTimeout:   30 * time.Second,
		RedirectLimit:    10,
		Retry:            1,
		Budget:           map[string]int{},
		Headers:          map[string]string{},
		Logger:           log.Default(),
	}}
}

func (b *Builder) WithDepth(d int) *Builder { b.cfg.Depth = d; return b }

func (b *Builder) WithDelay(d time.Duration) *Builder { b.cfg.Delay = d; return b }

func (b *Builder) WithRequestTimeout(d time.Duration) *Builder {
	b.cfg.RequestTimeout = d
	return b
}

func (b *Builder) WithCrawlTimeout(d time.Duration) *Builder { b.cfg.CrawlTimeout = d; return b }

func (b *Builder) WithRespectRobotsTxt(v bool) *Builder { b.cfg.RespectRobotsTxt = v; return b }

func (b *Builder) WithSubdomains(v bool) *Builder { b.cfg.Subdomains = v; return b }

func (b *Builder) WithTLD(v bool) *Builder { b.cfg.TLD = v; return b }

func (b *Builder) WithBlacklist(patterns ...string) *Builder {
	b.cfg.BlacklistURL = append(b.cfg.BlacklistURL, patterns...)
	return b
}
func (b *Builder) WithWhitelist(patterns ...string) *Builder {
	b.cfg.WhitelistURL = append(b.cfg.WhitelistURL, patterns...)
	return b
}
func (b *Builder) WithExternalDomains(v bool) *Builder { b.cfg.ExternalDomains = v; return b }

func (b *Builder) WithUserAgent(ua string) *Builder { b.cfg.UserAgent = ua; return b }

func (b *Builder) WithHeader(k, v string) *Builder {
	if b.cfg.Headers == nil {
		b.cfg.Headers = map[string]string{}
	}
	b.cfg.Headers[k] = v
	return b
}

func (b *Builder) WithProxies(proxies ...string) *Builder {
	b.cfg.Proxies = append(b.cfg.Proxies, proxies...)
	return b
}

func (b *Builder) WithRedirectLimit(n int) *Builder { b.cfg.RedirectLimit = n; return b }

func (b *Builder) WithRetry(n int) *Builder { b.cfg.Retry = n; return b }

func (b *Builder) WithMaxPageBytes(n int64) *Builder { b.cfg.MaxPageBytes = n; return b }

func (b *Builder) WithHTTP2PriorKnowledge(v bool) *Builder {
	b.cfg.HTTP2PriorKnowledge = v
	return b
}

func (b *Builder) WithAcceptInvalidCerts(v bool) *Builder { b.cfg.AcceptInvalidCerts = v; return b }

func (b *Builder) WithOnlyHTML(v bool) *Builder { b.cfg.OnlyHTML = v; return b }

func (b *Builder) WithFullResources(v bool) *Builder { b.cfg.FullResources = v; return b }

func (b *Builder) WithBodyStreamDir(dir string) *Builder { b.cfg.BodyStreamDir = dir; return b }

func (b *Builder) WithReadability(v bool) *Builder { b.cfg.Readability = v; return b }

func (b *Builder) WithReturnPageLinks(v bool) *Builder { b.cfg.ReturnPageLinks = v; return b }

func (b *Builder) WithFollowSitemaps(v bool) *Builder { b.cfg.FollowSitemaps = v; return b }

func (b *Builder) WithChrome(v bool) *Builder { b.cfg.UseChrome = v; return b }

func (b *Builder) WithStealthMode(t fingerprint.Tier) *Builder { b.cfg.StealthMode = t; return b }

func (b *Builder) WithViewport(w, h int) *Builder {
	b.cfg.ViewportWidth, b.cfg.ViewportHeight = w, h
	return b
}

func (b *Builder) WithWaitForSelector(sel string) *Builder { b.cfg.WaitForSelector = sel; return b }

func (b *Builder) WithWaitForIdleNetwork(v bool) *Builder { b.cfg.WaitForIdleNetwork = v; return b }

func (b *Builder) WithWaitForDelay(d time.Duration) *Builder {
	b.cfg.WaitForDelay = d
	return b
}

func (b *Builder) WithEvaluateOnNewDocument(js string) *Builder {
	b.cfg.EvaluateOnNewDoc = js
	return b
}

// WithBudget sets the max-pages budget for a path-prefix pattern. "*"
// bounds the crawl's total page count.
func (b *Builder) WithBudget(pattern string, max int) *Builder {
	if b.cfg.Budget == nil {
		b.cfg.Budget = map[string]int{}
	}
	b.cfg.Budget[pattern] = max
	return b
}

func (b *Builder) WithSharedQueue(v bool) *Builder { b.cfg.SharedQueue = v; return b }

func (b *Builder) WithHedging(enabled bool, delay time.Duration, maxHedges int) *Builder {
	b.cfg.HedgeEnabled = enabled
	b.cfg.HedgeDelay = delay
	b.cfg.HedgeMaxHedges = maxHedges
	return b
}

func (b *Builder) WithDedup(crawlID, baseDir string, persist bool) *Builder {
	b.cfg.DedupEnabled = true
	b.cfg.DedupCrawlID = crawlID
	b.cfg.DedupBaseDir = baseDir
	b.cfg.DedupPersist = persist
	return b
}

func (b *Builder) WithLogger(l Logger) *Builder {
	if l != nil {
		b.cfg.Logger = l
	}
	return b
}

// Build validates the accumulated options and returns the frozen Config.
// Per spec.md §4.13, fatal configuration errors surface here, before any
// fetch is dispatched.
func (b *Builder) Build() (Config, error) {
	if b.err != nil {
		return Config{}, b.err
	}
	if b.cfg.startURL == "" {
		return Config{}, fmt.Errorf("config: start URL is required")
	}
	if b.cfg.RedirectLimit < 0 {
		return Config{}, fmt.Errorf("config: redirect_limit must be >= 0, got %d", b.cfg.RedirectLimit)
	}
	if b.cfg.Retry < 0 {
		return Config{}, fmt.Errorf("config: retry must be >= 0, got %d", b.cfg.Retry)
	}
	if b.cfg.HedgeEnabled && b.cfg.HedgeDelay <= 0 {
		return Config{}, fmt.Errorf("config: hedging enabled but delay_ms is <= 0")
	}
	if len(b.cfg.WhitelistURL) > 0 && len(b.cfg.BlacklistURL) > 0 {
		for _, w := range b.cfg.WhitelistURL {
			for _, bl := range b.cfg.BlacklistURL {
				if w == bl {
					return Config{}, fmt.Errorf("config: pattern %q is both whitelisted and blacklisted", w)
				}
			}
		}
	}
	for pattern, max := range b.cfg.Budget {
		if max < 0 {
			return Config{}, fmt.Errorf("config: budget for pattern %q must be >= 0, got %d", pattern, max)
		}
	}
	return b.cfg, nil
}

// StartURL returns the configured start URL.
func (c Config) StartURL() string { return c.startURL }
