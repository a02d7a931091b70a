package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/theaidguild/spider/internal/config"
)

func TestParseSitemapLocsExtractsURLs(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://host/a</loc></url>
  <url><loc>https://host/b</loc></url>
</urlset>`)
	locs := parseSitemapLocs(body)
	if len(locs) != 2 || locs[0] != "https://host/a" || locs[1] != "https://host/b" {
		t.Fatalf("parseSitemapLocs = %v", locs)
	}
}

func TestParseSitemapLocsSitemapIndex(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://host/sitemap-a.xml</loc></sitemap>
  <sitemap><loc>https://host/sitemap-b.xml</loc></sitemap>
</sitemapindex>`)
	locs := parseSitemapLocs(body)
	if len(locs) != 2 || locs[0] != "https://host/sitemap-a.xml" {
		t.Fatalf("parseSitemapLocs = %v", locs)
	}
}

func TestParseSitemapLocsMalformedReturnsNil(t *testing.T) {
	if locs := parseSitemapLocs([]byte("not xml at all")); locs != nil {
		t.Errorf("parseSitemapLocs(malformed) = %v, want nil", locs)
	}
}

func TestCrawlFollowsSitemapSeeds(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "User-agent: *\nDisallow:\nSitemap: %s/sitemap.xml\n", srvURLPlaceholder)
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<url><loc>%s/from-sitemap</loc></url>
</urlset>`, srvURLPlaceholder)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>home</body></html>`)
	})
	mux.HandleFunc("/from-sitemap", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>only reachable via the sitemap</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURLPlaceholder = srv.URL

	cfg, err := config.NewBuilder(srv.URL+"/").
		WithFollowSitemaps(true).
		WithRequestTimeout(5 * time.Second).
		WithCrawlTimeout(10 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer o.Close()

	ch := o.Subscribe(16)
	if err := o.Crawl(context.Background()); err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	pages := collectPages(t, ch, 5*time.Second)
	got := pagePaths(pages)
	var gotList []string
	for p := range got {
		gotList = append(gotList, p)
	}
	sort.Strings(gotList)
	if !got[srv.URL+"/from-sitemap"] {
		t.Errorf("expected /from-sitemap to be seeded from the sitemap, pages seen: %v", gotList)
	}
}

// srvURLPlaceholder lets the robots.txt and sitemap.xml handlers above
// reference the httptest server's own URL, which isn't known until after
// httptest.NewServer returns.
var srvURLPlaceholder string
