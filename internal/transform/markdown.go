package transform

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkdownOptions controls the HTML-to-Markdown walker.
type MarkdownOptions struct {
	FilterImages bool
	// CommonMark selects CommonMark-flavored output: <meta> elements inside
	// the walked body are kept as raw tags and iframes are emitted as raw
	// HTML instead of Markdown links. Only the body is walked, so <meta> in
	// <head> is not kept; tables render the same in both modes.
	CommonMark bool
}

// ToMarkdown walks htmlStr's body and renders it as Markdown (or
// CommonMark, per opts.CommonMark).
func ToMarkdown(htmlStr string, opts MarkdownOptions) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return "", err
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	w := &mdWalker{opts: opts}
	body.Each(func(_ int, s *goquery.Selection) {
		if n := s.Get(0); n != nil {
			w.walkChildren(n)
		}
	})
	return postProcess(w.sb.String()), nil
}

type mdWalker struct {
	sb         strings.Builder
	opts       MarkdownOptions
	listDepth  int
	inCodeLike int // pre or code, inline escaping is suppressed
}

func (w *mdWalker) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walkNode(c)
	}
}

func (w *mdWalker) write(s string) { w.sb.WriteString(s) }

func (w *mdWalker) walkNode(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.writeText(n.Data)
		return
	case html.CommentNode:
		return
	}
	if n.Type != html.ElementNode {
		w.walkChildren(n)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript:
		return
	case atom.Meta:
		if w.opts.CommonMark {
			w.write(renderTag(n))
		}
		return
	case atom.Br:
		w.write("\n")
		return
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer:
		w.walkChildren(n)
		w.write("\n\n")
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.DataAtom - atom.H1 + 1)
		w.write(strings.Repeat("#", level) + " ")
		w.walkChildren(n)
		w.write("\n\n")
	case atom.B, atom.Strong:
		w.write("**")
		w.walkChildren(n)
		w.write("**")
	case atom.I, atom.Em:
		w.write("_")
		w.walkChildren(n)
		w.write("_")
	case atom.S, atom.Del, atom.Strike:
		w.write("~~")
		w.walkChildren(n)
		w.write("~~")
	case atom.Code:
		w.inCodeLike++
		w.write("`")
		w.walkChildren(n)
		w.write("`")
		w.inCodeLike--
	case atom.Pre:
		w.inCodeLike++
		w.write("```\n")
		w.writeVerbatim(n)
		w.write("\n```\n\n")
		w.inCodeLike--
	case atom.Img:
		if !w.opts.FilterImages {
			alt := attr(n, "alt")
			src := attr(n, "src")
			w.write(fmt.Sprintf("![%s](%s)", escapeInline(alt, false), src))
		}
	case atom.A:
		href := attr(n, "href")
		w.write("[")
		w.walkChildren(n)
		w.write(fmt.Sprintf("](%s)", href))
	case atom.Ul, atom.Menu:
		w.listDepth++
		w.walkListItems(n, false)
		w.listDepth--
		if w.listDepth == 0 {
			w.write("\n")
		}
	case atom.Ol:
		w.listDepth++
		w.walkListItems(n, true)
		w.listDepth--
		if w.listDepth == 0 {
			w.write("\n")
		}
	case atom.Blockquote:
		inner := &mdWalker{opts: w.opts}
		inner.walkChildren(n)
		for _, line := range strings.Split(strings.TrimRight(inner.sb.String(), "\n"), "\n") {
			w.write("> " + line + "\n")
		}
		w.write("\n")
	case atom.Table:
		w.writeTable(n)
	case atom.Iframe:
		src := attr(n, "src")
		if w.opts.CommonMark {
			w.write(fmt.Sprintf("<iframe src=%q></iframe>\n\n", src))
		} else {
			w.write(fmt.Sprintf("[iframe](%s)\n\n", src))
		}
	default:
		w.walkChildren(n)
	}
}

func (w *mdWalker) walkListItems(n *html.Node, ordered bool) {
	idx := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		idx++
		indent := strings.Repeat("  ", w.listDepth-1)
		if ordered {
			w.write(fmt.Sprintf("%s%d. ", indent, idx))
		} else {
			w.write(indent + "- ")
		}
		w.walkChildren(c)
		w.write("\n")
	}
}

func (w *mdWalker) writeTable(n *html.Node) {
	var rows [][]string
	var header []string
	forEachDescendant(n, atom.Tr, func(tr *html.Node) {
		var cells []string
		isHeaderRow := false
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == atom.Th {
				isHeaderRow = true
			}
			if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
				inner := &mdWalker{opts: w.opts}
				inner.walkChildren(c)
				cells = append(cells, strings.TrimSpace(strings.ReplaceAll(inner.sb.String(), "\n", " ")))
			}
		}
		if isHeaderRow && header == nil {
			header = cells
			return
		}
		rows = append(rows, cells)
	})

	if header == nil && len(rows) > 0 {
		header = rows[0]
		rows = rows[1:]
	}
	if header == nil {
		return
	}
	w.write("| " + strings.Join(header, " | ") + " |\n")
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---"
	}
	w.write("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range rows {
		for len(row) < len(header) {
			row = append(row, "")
		}
		w.write("| " + strings.Join(row[:len(header)], " | ") + " |\n")
	}
	w.write("\n")
}

func forEachDescendant(n *html.Node, a atom.Atom, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			fn(c)
		}
		forEachDescendant(c, a, fn)
	}
}

func (w *mdWalker) writeText(s string) {
	if w.inCodeLike > 0 {
		w.write(s)
		return
	}
	w.write(escapeInline(s, true))
}

func (w *mdWalker) writeVerbatim(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			w.write(c.Data)
		} else {
			w.writeVerbatim(c)
		}
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func renderTag(n *html.Node) string {
	var b strings.Builder
	b.WriteString("<" + n.Data)
	for _, a := range n.Attr {
		b.WriteString(fmt.Sprintf(` %s=%q`, a.Key, a.Val))
	}
	b.WriteString(">")
	return b.String()
}

// startOfLineEscapes are characters escaped only at the start of a line
// (block markers Markdown would otherwise interpret).
const startOfLineEscapes = "=>+-#"

// inlineEscapes are characters escaped anywhere inline, except inside
// code/pre.
const inlineEscapes = "<>*\\_~"

func escapeInline(s string, checkLineStart bool) string {
	var b strings.Builder
	atLineStart := true
	for _, r := range s {
		if checkLineStart && atLineStart && strings.ContainsRune(startOfLineEscapes, r) {
			b.WriteByte('\\')
		} else if strings.ContainsRune(inlineEscapes, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
		atLineStart = r == '\n'
	}
	return b.String()
}

// postProcess collapses runs of 3+ newlines down to 2 and trims trailing
// whitespace on each line and at the end of the document.
func postProcess(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n") + "\n"
}
