package orchestrator

import "testing"

func TestExtractFeedLinksRSS(t *testing.T) {
	body := []byte(`<?xml version="1.0"?>
<rss version="2.0">
<channel>
<title>Example</title>
<item><title>One</title><link>https://host/one</link></item>
<item><title>Two</title><link>https://host/two</link></item>
</channel>
</rss>`)
	links := extractFeedLinks(body)
	if len(links) != 2 || links[0] != "https://host/one" || links[1] != "https://host/two" {
		t.Fatalf("extractFeedLinks = %v", links)
	}
}

func TestExtractFeedLinksAtom(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
<title>Example</title>
<entry><title>One</title><link href="https://host/one"/></entry>
</feed>`)
	links := extractFeedLinks(body)
	if len(links) != 1 || links[0] != "https://host/one" {
		t.Fatalf("extractFeedLinks = %v", links)
	}
}

func TestExtractFeedLinksNonFeedReturnsNil(t *testing.T) {
	if links := extractFeedLinks([]byte("<html><body>not a feed</body></html>")); links != nil {
		t.Errorf("extractFeedLinks(non-feed) = %v, want nil", links)
	}
}
