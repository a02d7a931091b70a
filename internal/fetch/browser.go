package fetch

import (
	"context"
	"time"

	cdpfetch "github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/theaidguild/spider/internal/errs"
	"github.com/theaidguild/spider/internal/fingerprint"
)

// BrowserConfig mirrors spec.md §6's Browser configuration block.
type BrowserConfig struct {
	UseChrome          bool
	Stealth            fingerprint.Options
	ViewportWidth      int
	ViewportHeight     int
	WaitForIdleNetwork bool
	WaitForDelay       time.Duration
	WaitForSelector    string
	EvaluateOnNewDoc   string
	InterceptRequests  bool
	CaptureScreenshot  bool
}

// BrowserResult is what a single tab navigation produces.
type BrowserResult struct {
	FinalURL   string
	StatusCode int
	HTML       string
	Screenshot []byte
}

// Browser owns one chromedp allocator context for the lifetime of a
// crawl. Session launches a tab per page fetch; tabs are closed by the
// caller (or, on the losing side of a hedge race, by the cancellation
// hook passed to hedge.RaceWithCleanup).
type Browser struct {
	allocCtx context.Context
	cancel   context.CancelFunc
	unusable bool
}

// NewBrowser launches the headless Chrome allocator. If launch fails,
// the returned Browser is nil and the caller should fall back to the
// HTTP-only path and set its own "browser unavailable" flag per
// spec.md §4.13.
func NewBrowser(ctx context.Context, cfg BrowserConfig) (*Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, &errs.BrowserUnavailableError{Err: err}
	}
	return &Browser{allocCtx: browserCtx, cancel: func() { cancel(); allocCancel() }}, nil
}

// Close shuts down the allocator and every tab it owns.
func (b *Browser) Close() {
	if b != nil && b.cancel != nil {
		b.cancel()
	}
}

// Unusable reports whether a prior Navigate observed a fatal browser
// error, signaling the caller to stop using the browser path entirely.
func (b *Browser) Unusable() bool { return b != nil && b.unusable }

// Navigate opens a new tab, applies the stealth script and viewport,
// navigates to rawURL, waits per cfg's wait strategy, and captures the
// resulting HTML (plus an optional screenshot). The tab is always
// closed before returning, win or lose, since the caller already has
// everything it needs in BrowserResult.
func (b *Browser) Navigate(ctx context.Context, rawURL string, cfg BrowserConfig) (BrowserResult, error) {
	tabCtx, tabCancel := chromedp.NewContext(b.allocCtx)
	defer tabCancel()

	var statusCode int64 = 200
	listenCtx, listenCancel := context.WithCancel(tabCtx)
	defer listenCancel()
	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *network.EventResponseReceived:
			if ev.Response != nil && ev.Type == network.ResourceTypeDocument {
				statusCode = ev.Response.Status
			}
		case *cdpfetch.EventRequestPaused:
			go chromedp.Run(tabCtx, cdpfetch.ContinueRequest(ev.RequestID))
		}
	})

	script := fingerprint.GenerateScript(cfg.Stealth)

	tasks := chromedp.Tasks{
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			return err
		}),
	}
	if cfg.InterceptRequests {
		// request interception with a continue-everything policy: the
		// fetch layer exposes the capability, the orchestrator's
		// content filters decide what to block.
		tasks = append(tasks, cdpfetch.Enable())
	}
	if cfg.EvaluateOnNewDoc != "" {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(cfg.EvaluateOnNewDoc).Do(ctx)
			return err
		}))
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		tasks = append(tasks, chromedp.EmulateViewport(int64(cfg.ViewportWidth), int64(cfg.ViewportHeight)))
	}
	tasks = append(tasks, chromedp.Navigate(rawURL))

	switch {
	case cfg.WaitForSelector != "":
		tasks = append(tasks, chromedp.WaitReady(cfg.WaitForSelector, chromedp.ByQuery))
	case cfg.WaitForIdleNetwork:
		tasks = append(tasks, chromedp.WaitReady("body", chromedp.ByQuery))
	default:
		tasks = append(tasks, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	if cfg.WaitForDelay > 0 {
		tasks = append(tasks, chromedp.Sleep(cfg.WaitForDelay))
	}

	var html string
	var finalURL string
	tasks = append(tasks,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&finalURL),
	)

	var screenshot []byte
	if cfg.CaptureScreenshot {
		tasks = append(tasks, chromedp.FullScreenshot(&screenshot, 90))
	}

	if err := chromedp.Run(tabCtx, tasks); err != nil {
		b.unusable = true
		return BrowserResult{}, &errs.BrowserUnavailableError{Err: err}
	}

	if finalURL == "" {
		finalURL = rawURL
	}
	return BrowserResult{
		FinalURL:   finalURL,
		StatusCode: int(statusCode),
		HTML:       html,
		Screenshot: screenshot,
	}, nil
}
