// Package clean implements the HTML cleaning profiles: named strategies
// for stripping an HTML document down to the parts worth keeping before
// transformation.
package clean

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Profile names a cleaning strategy.
type Profile int

const (
	Raw Profile = iota
	Base            // alias: Default, Minimal
	Slim
	Aggressive // alias: Full
	Auto
)

func (p Profile) String() string {
	switch p {
	case Raw:
		return "raw"
	case Base:
		return "base"
	case Slim:
		return "slim"
	case Aggressive:
		return "aggressive"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// baseSelectors are removed by every profile except Raw.
var baseSelectors = []string{
	"script", "style", "link", "iframe",
	`[style*="display:none"]`, `[style*="display: none"]`,
	".ad", ".ads", ".advertisement", ".tracking",
	"[id*=tracking]", "[class*=tracking]",
}

var slimExtraSelectors = []string{
	"svg", "noscript", "canvas", "video",
	`img[src^="data:"]`,
}

var aggressiveExtraSelectors = []string{
	"nav", "footer",
}

// keptAttrs lists the attributes Aggressive preserves on every remaining
// element, alongside any data-* attribute; every other attribute is
// stripped.
var keptAttrs = map[string]bool{"id": true, "class": true}

// Clean applies profile to html and returns the cleaned HTML, always valid
// UTF-8. Raw returns its input unchanged.
func Clean(html string, profile Profile) (string, error) {
	if profile == Raw {
		return html, nil
	}
	if profile == Auto {
		profile = autoSelect(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	removeComments(doc.Selection)
	for _, sel := range baseSelectors {
		doc.Find(sel).Remove()
	}
	stripNonEssentialMeta(doc)

	switch profile {
	case Slim:
		for _, sel := range slimExtraSelectors {
			doc.Find(sel).Remove()
		}
	case Aggressive:
		for _, sel := range slimExtraSelectors {
			doc.Find(sel).Remove()
		}
		for _, sel := range aggressiveExtraSelectors {
			doc.Find(sel).Remove()
		}
		stripNonKeptAttrs(doc)
	}

	out, err := doc.Html()
	if err != nil {
		return "", err
	}
	if !utf8.ValidString(out) {
		out = strings.ToValidUTF8(out, "")
	}
	return out, nil
}

func stripNonEssentialMeta(doc *goquery.Document) {
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		property, _ := s.Attr("property")
		switch {
		case name == "viewport", name == "charset":
			return
		case strings.HasPrefix(property, "og:"):
			return
		default:
			s.Remove()
		}
	})
}

func stripNonKeptAttrs(doc *goquery.Document) {
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil {
			return
		}
		kept := node.Attr[:0]
		for _, a := range node.Attr {
			if keptAttrs[a.Key] || strings.HasPrefix(a.Key, "data-") {
				kept = append(kept, a)
			}
		}
		node.Attr = kept
	})
}

// removeComments strips HTML comment nodes recursively.
func removeComments(sel *goquery.Selection) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		if node == nil {
			return
		}
		if node.Type == html.CommentNode {
			s.Remove()
			return
		}
		removeComments(s)
	})
}
