package clean

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ContentAnalysis summarizes an HTML document for the purpose of picking a
// cleaning profile automatically.
type ContentAnalysis struct {
	TextRatio      float64 // text bytes / total HTML bytes
	CleanableRatio float64 // bytes inside script/style/iframe / total HTML bytes
	HasIframe      bool
	HasVideo       bool
	HasCanvas      bool
	LooksLikeSPA   bool // single root div with little server-rendered text
	TotalBytes     int
}

// Analyze computes a ContentAnalysis for html.
func Analyze(htmlStr string) ContentAnalysis {
	a := ContentAnalysis{TotalBytes: len(htmlStr)}
	if a.TotalBytes == 0 {
		return a
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return a
	}

	var cleanableBytes int
	doc.Find("script, style, iframe").Each(func(_ int, s *goquery.Selection) {
		h, _ := s.Html()
		cleanableBytes += len(h)
	})
	a.CleanableRatio = ratio(cleanableBytes, a.TotalBytes)

	text := doc.Text()
	a.TextRatio = ratio(len(text), a.TotalBytes)

	a.HasIframe = doc.Find("iframe").Length() > 0
	a.HasVideo = doc.Find("video").Length() > 0
	a.HasCanvas = doc.Find("canvas").Length() > 0

	bodyChildren := doc.Find("body").Children()
	a.LooksLikeSPA = bodyChildren.Length() <= 2 && len(strings.TrimSpace(text)) < 200

	return a
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

// autoSelect picks a cleaning profile from a ContentAnalysis of the
// document: heavy in markup-to-strip or SPA shells get the aggressive
// treatment, media-heavy pages get Slim, everything else gets Base.
func autoSelect(htmlStr string) Profile {
	a := Analyze(htmlStr)
	switch {
	case a.LooksLikeSPA, a.CleanableRatio > 0.5:
		return Aggressive
	case a.HasIframe, a.HasVideo, a.HasCanvas:
		return Slim
	default:
		return Base
	}
}
