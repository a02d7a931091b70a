package orchestrator

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theaidguild/spider/internal/config"
)

func collectPages(t *testing.T, ch <-chan Page, timeout time.Duration) []Page {
	t.Helper()
	var pages []Page
	deadline := time.After(timeout)
	for {
		select {
		case p, ok := <-ch:
			if !ok {
				return pages
			}
			pages = append(pages, p)
		case <-deadline:
			t.Fatalf("timed out after collecting %d pages", len(pages))
		}
	}
}

func pagePaths(pages []Page) map[string]bool {
	paths := make(map[string]bool, len(pages))
	for _, p := range pages {
		paths[p.URL] = true
	}
	return paths
}

func TestCrawlDiscoversLinkedPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf a</body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf b</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg, err := config.NewBuilder(srv.URL+"/").
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
	want := []string{srv.URL + "/", srv.URL + "/a", srv.URL + "/b"}
	for _, w := range want {
		if !got[w] {
			t.Errorf("expected a page for %s, pages seen: %v", w, got)
		}
	}
	if len(pages) != 3 {
		t.Errorf("len(pages) = %d, want 3 (no duplicate dispatch of the same URL)", len(pages))
	}
}

func TestCrawlRespectsTotalBudget(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf a</body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf b</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg, err := config.NewBuilder(srv.URL+"/").
		WithBudget("*", 1).
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
	if len(pages) != 1 {
		t.Fatalf("len(pages) = %d, want 1 under a total budget of 1", len(pages))
	}
}

func TestCrawlSkipsRobotsDisallowedPath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /b\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf a</body></html>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf b</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg, err := config.NewBuilder(srv.URL+"/").
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
	if got[srv.URL+"/b"] {
		t.Error("expected /b to be skipped per robots.txt Disallow")
	}
	if !got[srv.URL+"/a"] {
		t.Error("expected /a to still be crawled")
	}
}

func TestCrawlReturnsPageLinksOnlyWhenConfigured(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/a">a</a></body></html>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>leaf a</body></html>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg, err := config.NewBuilder(srv.URL+"/").
		WithReturnPageLinks(true).
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
	for _, p := range pages {
		if p.URL == srv.URL+"/" && len(p.Links) == 0 {
			t.Error("expected the home page's Links to be populated when ReturnPageLinks is set")
		}
	}
}
