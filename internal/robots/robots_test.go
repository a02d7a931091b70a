package robots

import (
	"net/url"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestRobotsBasicAllowDisallow(t *testing.T) {
	body := "User-agent: *\nDisallow: /private/\n"
	e, err := Parse(200, []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.CanFetch("spider", mustURL(t, "https://host/public")) {
		t.Error("expected /public to be allowed")
	}
	if e.CanFetch("spider", mustURL(t, "https://host/private/x")) {
		t.Error("expected /private/x to be disallowed")
	}
}

func TestRobotsUnreadDefaultsDisallow(t *testing.T) {
	e := NewUnread()
	if e.CanFetch("spider", mustURL(t, "https://host/anything")) {
		t.Error("unread robots.txt must default to disallow")
	}
}

func TestRobotsForbiddenStatusDisallowsAll(t *testing.T) {
	e, err := Parse(403, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CanFetch("spider", mustURL(t, "https://host/anything")) {
		t.Error("403 robots.txt fetch must disallow all")
	}
}

func TestRobots5xxAllowsAll(t *testing.T) {
	e, err := Parse(503, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.CanFetch("spider", mustURL(t, "https://host/anything")) {
		t.Error("5xx robots.txt fetch must allow all")
	}
}

func TestRobots404AllowsAll(t *testing.T) {
	e, err := Parse(404, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.CanFetch("spider", mustURL(t, "https://host/anything")) {
		t.Error("404 robots.txt fetch must allow all")
	}
}

func TestRobotsRequestRate(t *testing.T) {
	body := "User-agent: *\nRequest-rate: 1/10s\nDisallow:\n"
	e, err := Parse(200, []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rate, ok := e.GetReqRate("spider")
	if !ok {
		t.Fatal("expected a request-rate")
	}
	if rate.Requests != 1 || rate.Seconds != 10 {
		t.Errorf("rate = %+v, want {1 10}", rate)
	}
}

func TestRobotsCrawlDelay(t *testing.T) {
	body := "User-agent: *\nCrawl-delay: 5\nDisallow:\n"
	e, err := Parse(200, []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	delay, ok := e.GetCrawlDelay("spider")
	if !ok {
		t.Fatal("expected a crawl-delay")
	}
	if delay != 5 {
		t.Errorf("delay = %v, want 5", delay)
	}
}

func TestRobotsSitemapDirectives(t *testing.T) {
	body := "User-agent: *\nDisallow:\nSitemap: https://host/sitemap.xml\nSitemap: https://host/sitemap-news.xml\n"
	e, err := Parse(200, []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sitemaps := e.Sitemaps()
	if len(sitemaps) != 2 {
		t.Fatalf("Sitemaps() = %v, want 2 entries", sitemaps)
	}
	if sitemaps[0] != "https://host/sitemap.xml" || sitemaps[1] != "https://host/sitemap-news.xml" {
		t.Errorf("Sitemaps() = %v", sitemaps)
	}
}

func TestRobotsNoSitemapsReturnsEmpty(t *testing.T) {
	e, err := Parse(200, []byte("User-agent: *\nDisallow:\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.Sitemaps()) != 0 {
		t.Errorf("Sitemaps() = %v, want none", e.Sitemaps())
	}
}
