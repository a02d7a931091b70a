package orchestrator

import (
	"bytes"

	"github.com/mmcdole/gofeed"
)

// extractFeedLinks pulls each item's link out of an RSS or Atom document.
// It returns nil, rather than erroring, when the body doesn't parse as a
// feed so the caller can fall back to HTML anchor scanning.
func extractFeedLinks(body []byte) []string {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil || feed == nil {
		return nil
	}
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
	}
	return links
}
