package transform

import (
	"encoding/xml"
	"strings"

	"github.com/antchfx/htmlquery"
	nethtml "golang.org/x/net/html"
)

// ToXML serializes readability-normalized HTML as well-formed XML, with
// baseURL recorded as an xml:base attribute on the document element.
func ToXML(readabilityHTML, baseURL string) (string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(readabilityHTML))
	if err != nil {
		return "", err
	}

	root := htmlquery.FindOne(doc, "//body")
	if root == nil {
		root = doc
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<document xml:base="` + xmlEscapeAttr(baseURL) + `">`)
	writeXMLNode(&b, root)
	b.WriteString(`</document>`)
	return b.String(), nil
}

func writeXMLNode(b *strings.Builder, n *nethtml.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case nethtml.TextNode:
			xml.EscapeText(b, []byte(c.Data))
		case nethtml.ElementNode:
			tag := sanitizeTagName(c.Data)
			b.WriteString("<" + tag)
			for _, a := range c.Attr {
				b.WriteString(" " + sanitizeTagName(a.Key) + `="` + xmlEscapeAttr(a.Val) + `"`)
			}
			if c.FirstChild == nil {
				b.WriteString("/>")
				continue
			}
			b.WriteString(">")
			writeXMLNode(b, c)
			b.WriteString("</" + tag + ">")
		default:
			writeXMLNode(b, c)
		}
	}
}

// sanitizeTagName makes an HTML tag/attribute name a valid XML name: XML
// names cannot contain characters like ':' the way some HTML attributes
// (e.g. custom data attributes) might, but in practice HTML tag/attr
// tokens are already XML-name-safe; this guards against the rare case of
// an empty name by substituting a placeholder.
func sanitizeTagName(s string) string {
	if s == "" {
		return "_"
	}
	return s
}

func xmlEscapeAttr(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}
