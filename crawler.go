// Package spider is the crawl engine's public facade. Everything under
// internal/ is an implementation detail; callers construct a Config with
// a Builder, build a Crawler, and subscribe to the Pages it discovers.
package spider

import (
	"context"

	"github.com/theaidguild/spider/internal/config"
	"github.com/theaidguild/spider/internal/orchestrator"
)

// Config is the crawl engine's immutable, validated configuration.
type Config = config.Config

// Builder accumulates crawl options before Build validates and freezes them.
type Builder = config.Builder

// Logger is the narrow logging interface every component accepts.
type Logger = config.Logger

// Page is a single fetched and (optionally) rendered result.
type Page = orchestrator.Page

// NewBuilder starts a Builder for a crawl rooted at startURL.
func NewBuilder(startURL string) *Builder {
	return config.NewBuilder(startURL)
}

// Crawler runs one crawl's lifetime: discovery, fetch, transform, and
// delivery to subscribers. Construct one with New, then call Crawl or
// Scrape.
type Crawler struct {
	o *orchestrator.Orchestrator
}

// New builds a Crawler from cfg. Collaborators (transport, optional
// browser, optional dedup store) are wired eagerly; cfg's own fatal
// validation already happened in Builder.Build().
func New(cfg Config) (*Crawler, error) {
	o, err := orchestrator.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Crawler{o: o}, nil
}

// Subscribe returns a channel of Pages with the given buffer capacity.
// Only one subscriber is supported at a time; a later call to Subscribe
// replaces the previous channel. Call this before Crawl/Scrape so no
// pages are missed.
func (c *Crawler) Subscribe(capacity int) <-chan Page {
	return c.o.Subscribe(capacity)
}

// Unsubscribe stops delivering pages to the current subscriber channel
// and closes it. The crawl itself keeps running to completion.
func (c *Crawler) Unsubscribe() {
	c.o.Unsubscribe()
}

// Crawl runs link discovery to completion or until ctx is cancelled.
// Page bodies are not retained on emitted Pages; use Scrape to keep them.
func (c *Crawler) Crawl(ctx context.Context) error {
	return c.o.Crawl(ctx)
}

// Scrape is like Crawl but retains each page's response body for
// rendering via Page.Text, Page.Markdown, and Page.XML.
func (c *Crawler) Scrape(ctx context.Context) error {
	return c.o.Scrape(ctx)
}

// Close releases the Crawler's browser session (if any) and dedup store
// (if any). Call it once the crawl is done.
func (c *Crawler) Close() {
	c.o.Close()
}
