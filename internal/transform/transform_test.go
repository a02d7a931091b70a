package transform

import (
	"strings"
	"testing"

	"github.com/theaidguild/spider/internal/clean"
)

func TestMarkdownPipelineFromSpecScenario(t *testing.T) {
	in := `<html><body><h1>Hi</h1><p>Hello <b>world</b></p><script>x=1</script></body></html>`
	cleaned, err := clean.Clean(in, clean.Base)
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	md, err := ToMarkdown(cleaned, MarkdownOptions{})
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	want := "# Hi\n\nHello **world**\n"
	if md != want {
		t.Errorf("markdown = %q, want %q", md, want)
	}
}

func TestMarkdownIdempotentModuloWhitespace(t *testing.T) {
	in := `<html><body><p>Already clean markdown source rendered back through HTML.</p></body></html>`
	first, err := ToMarkdown(in, MarkdownOptions{})
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	wrapped := "<html><body><p>" + strings.TrimSpace(first) + "</p></body></html>"
	second, err := ToMarkdown(wrapped, MarkdownOptions{})
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if strings.Join(strings.Fields(first), " ") != strings.Join(strings.Fields(second), " ") {
		t.Errorf("idempotence failed modulo whitespace:\n first  = %q\n second = %q", first, second)
	}
}

func TestMarkdownFilterImages(t *testing.T) {
	in := `<html><body><img src="a.png" alt="x"><p>text</p></body></html>`
	md, err := ToMarkdown(in, MarkdownOptions{FilterImages: true})
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if strings.Contains(md, "![") {
		t.Errorf("expected image filtered out, got %q", md)
	}
}

func TestMarkdownTable(t *testing.T) {
	in := `<html><body><table><tr><th>A</th><th>B</th></tr><tr><td>1</td><td>2</td></tr></table></body></html>`
	md, err := ToMarkdown(in, MarkdownOptions{})
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(md, "| A | B |") || !strings.Contains(md, "| 1 | 2 |") {
		t.Errorf("expected flat markdown table, got %q", md)
	}
}

func TestToTextSelectsBody(t *testing.T) {
	in := `<html><body><p>Hello</p><p>World</p></body></html>`
	text, err := ToText(in, "")
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if !strings.Contains(text, "Hello") || !strings.Contains(text, "World") {
		t.Errorf("expected both paragraphs present, got %q", text)
	}
}

func TestToXMLWellFormed(t *testing.T) {
	in := `<html><body><p>content</p></body></html>`
	out, err := ToXML(in, "https://example.com/page")
	if err != nil {
		t.Fatalf("xml: %v", err)
	}
	if !strings.Contains(out, `xml:base="https://example.com/page"`) {
		t.Errorf("expected base url declared, got %q", out)
	}
	if !strings.HasPrefix(out, "<?xml") {
		t.Errorf("expected xml declaration, got %q", out)
	}
}

func TestExtractWithFallbackUsesRawOnEmpty(t *testing.T) {
	empty := emptyExtractor{}
	got, err := ExtractWithFallback(empty, []byte("<html></html>"), "https://x", "<html>raw</html>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "<html>raw</html>" {
		t.Errorf("got %q, want fallback raw html", got)
	}
}

type emptyExtractor struct{}

func (emptyExtractor) Extract(_ []byte, _ string) (string, error) { return "", nil }
