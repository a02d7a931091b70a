package transform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor pulls the main content out of an HTML document, discarding
// navigation, ads, and boilerplate.
type Extractor interface {
	Extract(raw []byte, pageURL string) (content string, err error)
}

// DensityExtractor is a best-effort readability extractor: it scores
// candidate containers (the first match of each of <article>, <main>,
// [role=main], #content, .content and <body>) by text-to-markup density
// and returns the winner's HTML. It mirrors the
// reference crawler tools' own fallback: try <main>, then fall back to
// <body> (see requests_crawler.go's fetchAndParse/page-building code).
type DensityExtractor struct{}

// Extract implements Extractor.
func (DensityExtractor) Extract(raw []byte, _ string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return "", err
	}

	candidates := []string{"article", "main", "[role=main]", "#content", ".content", "body"}
	best := ""
	bestScore := -1
	for _, sel := range candidates {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		score := textDensityScore(s)
		if score > bestScore {
			bestScore = score
			best, _ = s.Html()
		}
	}
	return best, nil
}

// textDensityScore is the candidate's visible-text length per thousand
// bytes of its inner HTML.
func textDensityScore(s *goquery.Selection) int {
	text := strings.TrimSpace(s.Text())
	markup, _ := s.Html()
	return len(text) * 1000 / (len(markup) + 1)
}

// ExtractWithFallback runs extractor over raw and falls back to raw's
// decoded HTML string if extraction returns empty content, per the
// reference contract in spec section 4.8.
func ExtractWithFallback(extractor Extractor, raw []byte, pageURL, rawHTML string) (string, error) {
	content, err := extractor.Extract(raw, pageURL)
	if err != nil || strings.TrimSpace(content) == "" {
		return rawHTML, nil
	}
	return content, nil
}
