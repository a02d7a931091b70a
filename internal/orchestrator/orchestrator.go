package orchestrator

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theaidguild/spider/internal/config"
	"github.com/theaidguild/spider/internal/dedup"
	"github.com/theaidguild/spider/internal/errs"
	"github.com/theaidguild/spider/internal/fetch"
	"github.com/theaidguild/spider/internal/fingerprint"
	"github.com/theaidguild/spider/internal/hedge"
	"github.com/theaidguild/spider/internal/normalize"
	"github.com/theaidguild/spider/internal/robots"
	"github.com/theaidguild/spider/internal/validate"

	"github.com/PuerkitoBio/goquery"
)

// stealthOptionsFor translates the crawl's browser configuration into the
// fingerprint package's spoofing options.
func stealthOptionsFor(cfg config.Config) fingerprint.Options {
	return fingerprint.Options{
		Tier:      cfg.StealthMode,
		UserAgent: cfg.UserAgent,
		Viewport:  fingerprint.Viewport{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
	}
}

const maxConcurrentFetches = 16

// Orchestrator owns the frontier, the Seen-Set, the robots cache, and the
// fetch pipeline for one crawl's lifetime, draining discovered pages into
// a bounded subscriber channel.
type Orchestrator struct {
	cfg    config.Config
	logger config.Logger

	client  *fetch.Client
	browser *fetch.Browser

	seen      *normalize.SeenSet
	filter    *normalize.URLFilter
	frontier  *frontier
	budgets   *budgetTracker
	dedupStr  *dedup.Store

	robotsMu    sync.Mutex
	robotsCache map[string]*robots.Engine

	browserUnusable atomic.Bool

	subMu  sync.Mutex
	sub    chan Page
	stopCh chan struct{}
	closed bool
	emitWG sync.WaitGroup

	retainBodies bool
	inFlight     sync.WaitGroup
	sem          chan struct{}

	pagesEmitted atomic.Int64
}

// New builds an Orchestrator from cfg. Fatal configuration errors were
// already surfaced by config.Builder.Build(); New only wires collaborators.
func New(cfg config.Config) (*Orchestrator, error) {
	seedURL, err := normalize.ParseAbsolute(cfg.StartURL())
	if err != nil {
		return nil, err
	}

	filter, err := normalize.NewURLFilter(normalize.FilterConfig{
		BlacklistURL:    cfg.BlacklistURL,
		WhitelistURL:    cfg.WhitelistURL,
		ExternalDomains: cfg.ExternalDomains,
		Subdomains:      cfg.Subdomains,
		TLD:             cfg.TLD,
	}, seedURL)
	if err != nil {
		return nil, err
	}

	client, err := fetch.NewClient(fetch.TransportConfig{
		UserAgent:           cfg.UserAgent,
		Headers:             cfg.Headers,
		HTTP2PriorKnowledge: cfg.HTTP2PriorKnowledge,
		AcceptInvalidCerts:  cfg.AcceptInvalidCerts,
		Proxies:             cfg.Proxies,
		RedirectLimit:       cfg.RedirectLimit,
		Retry:               cfg.Retry,
		MaxPageBytes:        cfg.MaxPageBytes,
		RequestTimeout:      cfg.RequestTimeout,
		FullResources:       cfg.FullResources,
		StreamDir:           cfg.BodyStreamDir,
	})
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		cfg:         cfg,
		logger:      cfg.Logger,
		client:      client,
		seen:        normalize.NewSeenSet(),
		filter:      filter,
		frontier:    newFrontier(cfg.SharedQueue),
		budgets:     newBudgetTracker(cfg.Budget),
		robotsCache: map[string]*robots.Engine{},
		sem:         make(chan struct{}, maxConcurrentFetches),
	}

	if cfg.UseChrome {
		browser, err := fetch.NewBrowser(context.Background(), fetch.BrowserConfig{})
		if err != nil {
			o.browserUnusable.Store(true)
			if o.logger != nil {
				o.logger.Printf("orchestrator: browser unavailable, falling back to HTTP: %v", err)
			}
		} else {
			o.browser = browser
		}
	}

	if cfg.DedupEnabled {
		store, err := dedup.New(dedup.Options{
			CrawlID: cfg.DedupCrawlID,
			BaseDir: cfg.DedupBaseDir,
			Persist: cfg.DedupPersist,
		})
		if err != nil {
			if o.logger != nil {
				o.logger.Printf("orchestrator: dedup store unavailable, proceeding without it: %v", err)
			}
		} else {
			o.dedupStr = store
		}
	}

	o.frontier.Push(FrontierItem{URL: seedURL, Depth: 0})
	o.seen.Insert(normalize.CaseInsensitiveString(seedURL.String()))

	if cfg.FollowSitemaps {
		// robots.txt is fetched here purely for its Sitemap directives,
		// independent of RespectRobotsTxt — that flag only governs
		// whether its Allow/Disallow rules gate individual fetches.
		engine := o.robotsFor(context.Background(), seedURL)
		if sitemaps := engine.Sitemaps(); len(sitemaps) > 0 {
			o.seedFromSitemaps(sitemaps)
		}
	}

	return o, nil
}

// Subscribe returns a bounded channel of Pages. Only one subscriber is
// supported per Orchestrator; calling it again replaces the prior channel.
func (o *Orchestrator) Subscribe(capacity int) <-chan Page {
	o.subMu.Lock()
	defer o.subMu.Unlock()
	o.sub = make(chan Page, capacity)
	o.stopCh = make(chan struct{})
	o.closed = false
	return o.sub
}

// Unsubscribe stops delivering pages to the current subscriber channel and
// closes it. The crawl itself keeps running to completion; subsequent pages
// are simply discarded. Closing stopCh first unblocks any emit() parked on
// a full channel, and emitWG.Wait() guarantees none of them is still
// sending before the channel itself is closed — the two can never race.
func (o *Orchestrator) Unsubscribe() {
	o.subMu.Lock()
	if o.sub == nil || o.closed {
		o.subMu.Unlock()
		return
	}
	o.closed = true
	sub, stopCh := o.sub, o.stopCh
	o.subMu.Unlock()

	close(stopCh)
	o.emitWG.Wait()
	close(sub)
}

func (o *Orchestrator) emit(p Page) {
	o.subMu.Lock()
	if o.sub == nil || o.closed {
		o.subMu.Unlock()
		return
	}
	sub, stopCh := o.sub, o.stopCh
	o.emitWG.Add(1)
	o.subMu.Unlock()
	defer o.emitWG.Done()

	// Backpressure: block until there's room, rather than dropping —
	// dispatches pause per spec.md §4.13, they don't skip pages. stopCh
	// is the only safe way to unblock this: it is distinct from sub, so
	// closing it can never race with this send the way closing sub
	// itself would.
	select {
	case sub <- p:
	case <-stopCh:
	}
}

// Crawl performs discovery without retaining page bodies for emission
// (link graph traversal only; Pages are still emitted with metadata).
func (o *Orchestrator) Crawl(ctx context.Context) error {
	o.retainBodies = false
	return o.run(ctx)
}

// Scrape is like Crawl but retains response bodies on emitted Pages.
func (o *Orchestrator) Scrape(ctx context.Context) error {
	o.retainBodies = true
	return o.run(ctx)
}

// Close releases the browser (if any) and the dedup store (if any).
func (o *Orchestrator) Close() {
	if o.browser != nil {
		o.browser.Close()
	}
	if o.dedupStr != nil {
		o.dedupStr.Close()
	}
}

func (o *Orchestrator) run(ctx context.Context) error {
	if o.cfg.CrawlTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.CrawlTimeout)
		defer cancel()
	}

	maxURLs := o.cfg.Budget["*"]
	dispatched := 0
	idleTicker := time.NewTicker(5 * time.Millisecond)
	defer idleTicker.Stop()

	for {
		if ctx.Err() != nil {
			break
		}
		if maxURLs > 0 && dispatched >= maxURLs {
			break
		}
		item, ok := o.frontier.Pop()
		if !ok {
			if o.frontier.Len() == 0 {
				// Wait briefly for in-flight dispatches to enqueue more
				// links; if the queue stays empty, stop.
				done := make(chan struct{})
				go func() { o.inFlight.Wait(); close(done) }()
				select {
				case <-done:
					if o.frontier.Len() == 0 {
						goto stop
					}
					continue
				case <-time.After(50 * time.Millisecond):
					if o.frontier.Len() == 0 {
						continue
					}
				case <-ctx.Done():
					goto stop
				}
				continue
			}
			select {
			case <-idleTicker.C:
				continue
			case <-ctx.Done():
				goto stop
			}
		}

		select {
		case o.sem <- struct{}{}:
		case <-ctx.Done():
			goto stop
		}
		dispatched++
		o.inFlight.Add(1)
		go func(it FrontierItem) {
			defer func() { <-o.sem; o.inFlight.Done() }()
			o.process(ctx, it)
		}(item)
	}
stop:
	o.inFlight.Wait()
	o.Unsubscribe()
	return nil
}

func (o *Orchestrator) process(ctx context.Context, item FrontierItem) {
	u := item.URL
	ua := "spider"
	if o.cfg.UserAgent != "" {
		ua = o.cfg.UserAgent
	}

	if o.cfg.RespectRobotsTxt {
		engine := o.robotsFor(ctx, u)
		if !engine.CanFetch(ua, u) {
			return // spec.md §7 RobotsDenied: skipped silently unless configured otherwise
		}
		if delay, ok := engine.GetCrawlDelay(ua); ok {
			d := time.Duration(delay * float64(time.Second))
			if d > o.cfg.Delay {
				o.frontier.SetHostDelay(u.Hostname(), d)
			} else {
				o.frontier.SetHostDelay(u.Hostname(), o.cfg.Delay)
			}
		} else {
			o.frontier.SetHostDelay(u.Hostname(), o.cfg.Delay)
		}
	} else {
		o.frontier.SetHostDelay(u.Hostname(), o.cfg.Delay)
	}

	if !o.filter.Allowed(u.String()) {
		return
	}
	if !o.budgets.Allow(u.Path) {
		return
	}
	if o.dedupStr != nil {
		if exists, _ := o.dedupStr.URLExists(u.String()); exists {
			return
		}
		o.dedupStr.InsertURL(u.String())
	}

	result := o.dispatchFetch(ctx, u)
	page := o.toPage(u, item.Depth, result)

	if o.cfg.OnlyHTML && page.StatusCode > 0 && !fetch.IsHTML(fetch.Result{Header: page.Header}) {
		return
	}

	if page.Err == nil && page.StatusCode >= 200 && page.StatusCode < 300 && len(page.Body) > 0 {
		if validate.LooksLikeFalseSuccess(page.Body, "") {
			page.FalseSuccess = true
		} else {
			var links []string
			if fetch.IsFeed(fetch.Result{Header: page.Header}) {
				links = extractFeedLinks(page.Body)
			}
			if links == nil {
				links = extractLinks(u, page.Body)
			}
			o.enqueueLinks(u, item.Depth, links)
			if o.cfg.ReturnPageLinks {
				page.Links = links
			}
		}
	}

	if !o.retainBodies {
		page.Body = nil
	}
	o.pagesEmitted.Add(1)
	o.emit(page)
}

func (o *Orchestrator) robotsFor(ctx context.Context, u *url.URL) *robots.Engine {
	host := u.Hostname()
	o.robotsMu.Lock()
	if e, ok := o.robotsCache[host]; ok {
		o.robotsMu.Unlock()
		return e
	}
	o.robotsMu.Unlock()

	robotsURL := u.Scheme + "://" + host + "/robots.txt"
	res := o.client.Fetch(ctx, robotsURL, 0)

	var engine *robots.Engine
	if res.Err != nil {
		engine = robots.NewFromStatus(0)
	} else {
		e, err := robots.Parse(res.StatusCode, res.Body)
		if err != nil {
			engine = robots.NewFromStatus(res.StatusCode)
		} else {
			engine = e
		}
	}

	o.robotsMu.Lock()
	o.robotsCache[host] = engine
	o.robotsMu.Unlock()
	return engine
}

// unifiedResult normalizes the HTTP and browser fetch paths into one shape.
type unifiedResult struct {
	finalURL   string
	statusCode int
	header     map[string][]string
	body       []byte
	bodyFile   string
	screenshot []byte
	attempt    int
	err        error
}

func (o *Orchestrator) dispatchFetch(ctx context.Context, u *url.URL) unifiedResult {
	if ctx.Err() != nil {
		return unifiedResult{err: &errs.CancelledError{Reason: ctx.Err().Error()}}
	}

	if o.cfg.UseChrome && o.browser != nil && !o.browserUnusable.Load() && !o.browser.Unusable() {
		r, err := o.browser.Navigate(ctx, u.String(), fetch.BrowserConfig{
			Stealth:            stealthOptionsFor(o.cfg),
			ViewportWidth:      o.cfg.ViewportWidth,
			ViewportHeight:     o.cfg.ViewportHeight,
			WaitForIdleNetwork: o.cfg.WaitForIdleNetwork,
			WaitForDelay:       o.cfg.WaitForDelay,
			WaitForSelector:    o.cfg.WaitForSelector,
			EvaluateOnNewDoc:   o.cfg.EvaluateOnNewDoc,
		})
		if err != nil {
			if o.browser.Unusable() {
				o.browserUnusable.Store(true)
				if o.logger != nil {
					o.logger.Printf("orchestrator: browser became unusable, future fetches use HTTP: %v", err)
				}
			}
		} else {
			return unifiedResult{
				finalURL:   r.FinalURL,
				statusCode: r.StatusCode,
				body:       []byte(r.HTML),
				screenshot: r.Screenshot,
			}
		}
	}

	primary := func(ctx context.Context) (fetch.Result, error) {
		res := o.client.Fetch(ctx, u.String(), 0)
		return res, res.Err
	}

	var hedges []hedge.Attempt[fetch.Result]
	if o.cfg.HedgeEnabled {
		hedges = append(hedges, func(ctx context.Context) (fetch.Result, error) {
			res := o.client.Fetch(ctx, u.String(), 1)
			return res, res.Err
		})
	}

	res, err := hedge.Race(ctx, primary, hedges, hedge.Config{
		Enabled:   o.cfg.HedgeEnabled,
		Delay:     o.cfg.HedgeDelay,
		MaxHedges: o.cfg.HedgeMaxHedges,
	})
	fr := res.Value
	return unifiedResult{
		finalURL:   fr.FinalURL,
		statusCode: fr.StatusCode,
		header:     map[string][]string(fr.Header),
		body:       fr.Body,
		bodyFile:   fr.BodyFile,
		attempt:    fr.Attempt,
		err:        err,
	}
}

func (o *Orchestrator) toPage(u *url.URL, depth int, r unifiedResult) Page {
	header := make(map[string][]string, len(r.header))
	for k, v := range r.header {
		header[k] = v
	}
	return Page{
		URL:         u.String(),
		FinalURL:    r.finalURL,
		StatusCode:  r.statusCode,
		Header:      header,
		Body:        r.body,
		BodyFile:    r.bodyFile,
		Screenshot:  r.screenshot,
		Depth:       depth,
		FetchedAt:   time.Now(),
		Attempt:     r.attempt,
		Err:         r.err,
		Readability: o.cfg.Readability,
	}
}

func (o *Orchestrator) enqueueLinks(base *url.URL, depth int, links []string) {
	if o.cfg.Depth >= 0 && depth+1 > o.cfg.Depth {
		return
	}
	var pending []normalize.CaseInsensitiveString
	newKeys := make([]normalize.CaseInsensitiveString, 0, len(links))
	resolved := make(map[string]*url.URL, len(links))

	for _, href := range links {
		abs, err := normalize.ConvertAbsPath(base, href)
		if err != nil {
			continue
		}
		if !o.filter.Allowed(abs.String()) {
			continue
		}
		key := normalize.CaseInsensitiveString(abs.String())
		newKeys = append(newKeys, key)
		resolved[key.Key()] = abs
	}

	o.seen.ExtendLinks(&pending, newKeys)
	for _, key := range pending {
		if abs, ok := resolved[key.Key()]; ok {
			o.frontier.Push(FrontierItem{URL: abs, Depth: depth + 1, Referer: base.String()})
		}
	}
}

func extractLinks(base *url.URL, body []byte) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			links = append(links, href)
		}
	})
	return links
}
