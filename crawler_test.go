package spider

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCrawlerEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/about">about</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>About</h1><p>hello world</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg, err := NewBuilder(srv.URL+"/").
		WithRequestTimeout(5 * time.Second).
		WithCrawlTimeout(10 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	crawler, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer crawler.Close()

	pages := crawler.Subscribe(16)
	if err := crawler.Scrape(context.Background()); err != nil {
		t.Fatalf("Scrape: %v", err)
	}

	var sawAbout bool
	for p := range pages {
		if p.URL == srv.URL+"/about" {
			sawAbout = true
			if p.Text() == "" {
				t.Error("expected a non-empty rendered text for /about with Scrape retaining bodies")
			}
		}
	}
	if !sawAbout {
		t.Error("expected the crawl to discover /about via the home page's link")
	}
}
