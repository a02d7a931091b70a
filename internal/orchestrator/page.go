// Package orchestrator implements the crawl scheduler: frontier
// management, policy enforcement, budgets, backpressure, and cooperative
// cancellation, draining discovered pages into a subscriber channel.
package orchestrator

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/theaidguild/spider/internal/clean"
	"github.com/theaidguild/spider/internal/transform"
)

// Page is what the orchestrator emits to subscribers: a single fetch
// result plus lazily computed rendered views of its body.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Header     http.Header
	// Body holds the response bytes, unless the fetch streamed them to
	// disk (full_resources, or a body larger than the transport's
	// in-memory threshold), in which case Body is empty and BodyFile
	// names the path they were written to.
	Body       []byte
	BodyFile   string
	Screenshot []byte

	Depth        int
	FetchedAt    time.Time
	Attempt      int
	Err          error
	FromCache    bool
	FalseSuccess bool
	Links        []string

	// Readability gates whether XML extracts main content via
	// transform.DensityExtractor before serializing, set from the
	// crawl's config.Config.Readability.
	Readability bool
}

// Raw returns the page's raw response body.
func (p Page) Raw() []byte { return p.Body }

// HTML decodes Body as UTF-8 HTML text. The crawl engine only declares
// UTF-8 bodies valid; callers needing another declared encoding should
// transcode Body themselves before calling this.
func (p Page) HTML() string { return string(p.Body) }

// Text runs the HTML cleaner at Base profile followed by the text
// transformer. Errors are swallowed in favor of a best-effort string per
// spec.md §7's TransformFailure policy — callers needing the error use
// TextWithProfile directly.
func (p Page) Text() string {
	s, _ := p.TextWithProfile(clean.Base)
	return s
}

// TextWithProfile cleans Body at profile, then extracts visible text.
func (p Page) TextWithProfile(profile clean.Profile) (string, error) {
	cleaned, err := clean.Clean(p.HTML(), profile)
	if err != nil {
		return p.HTML(), err
	}
	return transform.ToText(cleaned, "")
}

// Markdown cleans Body at Base profile and renders Markdown.
func (p Page) Markdown() string {
	s, _ := p.MarkdownWithOptions(clean.Base, transform.MarkdownOptions{})
	return s
}

// MarkdownWithOptions cleans Body at profile then renders Markdown with opts.
func (p Page) MarkdownWithOptions(profile clean.Profile, opts transform.MarkdownOptions) (string, error) {
	cleaned, err := clean.Clean(p.HTML(), profile)
	if err != nil {
		return "", err
	}
	return transform.ToMarkdown(cleaned, opts)
}

// XML cleans Body at profile, optionally extracts readability content (when
// the crawl was built with WithReadability(true)), then emits XML.
func (p Page) XML(profile clean.Profile) (string, error) {
	cleaned, err := clean.Clean(p.HTML(), profile)
	if err != nil {
		return "", err
	}
	if p.Readability {
		cleaned, err = transform.ExtractWithFallback(transform.DensityExtractor{}, []byte(cleaned), p.FinalURL, cleaned)
		if err != nil {
			return "", err
		}
	}
	return transform.ToXML(cleaned, p.FinalURL)
}

// ContentType returns the declared Content-Type header, stripped of any
// charset parameter.
func (p Page) ContentType() string {
	ct := p.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}

// FrontierItem is a URL awaiting dispatch, deduped against the Seen-Set
// before it ever reaches the frontier.
type FrontierItem struct {
	URL     *url.URL
	Depth   int
	Referer string
}
