package orchestrator

import (
	"bytes"
	"context"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/theaidguild/spider/internal/normalize"
)

// maxSitemapFiles bounds how many sitemap files (the declared ones plus
// nested sitemap-index children at any depth) a single crawl will fetch.
const maxSitemapFiles = 8

var locXPath = mustCompileXPath("//*[local-name()='loc']")

func mustCompileXPath(expr string) *xpath.Expr {
	e, err := xpath.Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// parseSitemapLocs extracts every <loc> text value from a sitemap or
// sitemap-index XML document. Both document flavors use the same element
// name, so a sitemap-index's child-sitemap URLs come back indistinguishable
// from a plain sitemap's page URLs; the caller tells them apart by
// extension.
func parseSitemapLocs(body []byte) []string {
	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}
	nodes := xmlquery.QuerySelectorAll(doc, locXPath)
	locs := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if s := strings.TrimSpace(n.InnerText()); s != "" {
			locs = append(locs, s)
		}
	}
	return locs
}

// seedFromSitemaps fetches every sitemap robots.txt declared (every ".xml"
// <loc> it finds is fetched in turn as a further sitemap, at any nesting
// depth, up to maxSitemapFiles fetches), filters the resulting page URLs through
// the site-scope policy, and pushes the new ones onto the frontier as
// depth-0 seeds. Best-effort throughout: a fetch or parse failure for one
// sitemap simply yields fewer seeds, never a hard error.
func (o *Orchestrator) seedFromSitemaps(sitemapURLs []string) {
	fetched := 0
	queue := append([]string(nil), sitemapURLs...)
	for len(queue) > 0 && fetched < maxSitemapFiles {
		sitemapURL := queue[0]
		queue = queue[1:]

		res := o.client.Fetch(context.Background(), sitemapURL, 0)
		fetched++
		if res.Err != nil || res.StatusCode < 200 || res.StatusCode >= 300 {
			continue
		}

		for _, loc := range parseSitemapLocs(res.Body) {
			if strings.HasSuffix(strings.ToLower(loc), ".xml") && len(queue) < maxSitemapFiles {
				queue = append(queue, loc)
				continue
			}
			o.seedURL(loc)
		}
	}
}

// seedURL normalizes, filters, and (if new) enqueues a single discovered
// seed URL at depth 0.
func (o *Orchestrator) seedURL(raw string) {
	u, err := normalize.ParseAbsolute(raw)
	if err != nil {
		return
	}
	if !o.filter.Allowed(u.String()) {
		return
	}
	key := normalize.CaseInsensitiveString(u.String())
	if o.seen.Contains(key) {
		return
	}
	o.seen.Insert(key)
	o.frontier.Push(FrontierItem{URL: u, Depth: 0})
}
