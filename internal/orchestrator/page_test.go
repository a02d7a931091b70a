package orchestrator

import (
	"strings"
	"testing"

	"github.com/theaidguild/spider/internal/clean"
)

const pageTestHTML = `<html><body>
<nav><a href="/a">nav link</a></nav>
<article><p>the main content of the page</p></article>
</body></html>`

func TestPageXMLWithoutReadabilityKeepsFullDocument(t *testing.T) {
	p := Page{Body: []byte(pageTestHTML), FinalURL: "https://example.com/"}
	out, err := p.XML(clean.Base)
	if err != nil {
		t.Fatalf("XML: %v", err)
	}
	if !strings.Contains(out, "nav link") || !strings.Contains(out, "main content") {
		t.Errorf("expected the full cleaned document, got %q", out)
	}
}

func TestPageXMLWithReadabilityRunsExtractor(t *testing.T) {
	p := Page{Body: []byte(pageTestHTML), FinalURL: "https://example.com/", Readability: true}
	out, err := p.XML(clean.Base)
	if err != nil {
		t.Fatalf("XML: %v", err)
	}
	// DensityExtractor's candidate scan always includes "body" itself, so
	// it never drops content entirely here; this exercises the gated
	// extractor path without depending on which candidate it favors.
	if !strings.Contains(out, "main content") {
		t.Errorf("expected the main content to survive extraction, got %q", out)
	}
}
