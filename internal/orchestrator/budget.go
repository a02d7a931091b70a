package orchestrator

import (
	"strings"
	"sync"
)

// budgetTracker enforces spec.md §4.13's per-path-prefix page budgets:
// a map "pattern -> max_pages", where "*" bounds the crawl's total page
// count. Crawling stops descending a prefix once its count equals its
// budget.
type budgetTracker struct {
	mu      sync.Mutex
	limits  map[string]int
	counts  map[string]int
	total   int
	totalOK int // max for "*", -1 if unset
}

func newBudgetTracker(limits map[string]int) *budgetTracker {
	t := &budgetTracker{
		limits:  map[string]int{},
		counts:  map[string]int{},
		totalOK: -1,
	}
	for pattern, max := range limits {
		if pattern == "*" {
			t.totalOK = max
			continue
		}
		t.limits[pattern] = max
	}
	return t
}

// matchPrefix returns the longest configured prefix pattern that path
// starts under, or "" if none matches. A trailing "*" is a wildcard:
// "/blog/*" matches every path under "/blog/".
func (t *budgetTracker) matchPrefix(path string) string {
	best := ""
	for pattern := range t.limits {
		prefix := strings.TrimSuffix(pattern, "*")
		if strings.HasPrefix(path, prefix) && len(pattern) > len(best) {
			best = pattern
		}
	}
	return best
}

// Allow reports whether a page under path may still be enqueued, and if
// so, reserves its slot (incrementing counters) atomically.
func (t *budgetTracker) Allow(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalOK >= 0 && t.total >= t.totalOK {
		return false
	}
	if pattern := t.matchPrefix(path); pattern != "" {
		if t.counts[pattern] >= t.limits[pattern] {
			return false
		}
		t.counts[pattern]++
	}
	t.total++
	return true
}
