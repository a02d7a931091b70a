package orchestrator

import "testing"

func TestBudgetTrackerPrefixMatch(t *testing.T) {
	b := newBudgetTracker(map[string]int{"/blog/*": 1, "*": 10})
	if !b.Allow("/blog/post-1") {
		t.Fatal("expected first /blog/ page to be allowed")
	}
	if b.Allow("/blog/post-2") {
		t.Fatal("expected second /blog/ page to be rejected once its prefix budget is spent")
	}
	if !b.Allow("/shop/item") {
		t.Fatal("expected an unrelated prefix to be unaffected by /blog/*'s budget")
	}
}

func TestBudgetTrackerLongestPrefixWins(t *testing.T) {
	b := newBudgetTracker(map[string]int{"/blog": 5, "/blog/archive": 1})
	if !b.Allow("/blog/archive/2020") {
		t.Fatal("expected first archive page to be allowed")
	}
	if b.Allow("/blog/archive/2021") {
		t.Fatal("expected the narrower /blog/archive budget to win over /blog and reject the second page")
	}
	if !b.Allow("/blog/other") {
		t.Fatal("expected a /blog page outside /blog/archive to still draw from the wider budget")
	}
}

func TestBudgetTrackerTotalCap(t *testing.T) {
	b := newBudgetTracker(map[string]int{"*": 2})
	if !b.Allow("/a") || !b.Allow("/b") {
		t.Fatal("expected the first two pages to be allowed")
	}
	if b.Allow("/c") {
		t.Fatal("expected the third page to be rejected once the total cap is spent")
	}
}

func TestBudgetTrackerUnboundedByDefault(t *testing.T) {
	b := newBudgetTracker(nil)
	for i := 0; i < 100; i++ {
		if !b.Allow("/anything") {
			t.Fatalf("expected no budget to allow unlimited pages, rejected at iteration %d", i)
		}
	}
}
