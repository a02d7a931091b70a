// Package transform converts cleaned HTML into text, Markdown, CommonMark,
// and XML, and provides the readability extraction fallback.
package transform

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements force a line break before and after themselves when
// walking the DOM for plain-text output.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true,
	atom.Tr: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Blockquote: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
}

// ToText selects selector (or "body" if empty) within html and walks it,
// preserving structural whitespace while collapsing runs of blank lines
// into a single blank line.
func ToText(htmlStr, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", err
	}
	if selector == "" {
		selector = "body"
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	var b strings.Builder
	sel.Each(func(_ int, s *goquery.Selection) {
		if s.Get(0) != nil {
			walkText(s.Get(0), &b)
		}
	})
	return canonicalizeText(b.String()), nil
}

func walkText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return
		}
		if blockElements[n.DataAtom] {
			b.WriteByte('\n')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b)
	}
	if n.Type == html.ElementNode && blockElements[n.DataAtom] {
		b.WriteByte('\n')
	}
}

// canonicalizeText collapses runs of whitespace within lines, collapses
// 3+ consecutive newlines to 2, and trims leading/trailing blank lines.
func canonicalizeText(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blankRun := 0
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed == "" {
			blankRun++
			if blankRun > 1 {
				continue
			}
		} else {
			blankRun = 0
		}
		out = append(out, trimmed)
	}
	result := strings.Join(out, "\n")
	return strings.Trim(result, "\n")
}
