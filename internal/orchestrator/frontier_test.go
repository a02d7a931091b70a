package orchestrator

import (
	"net/url"
	"testing"
	"time"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestFrontierSharedQueueIsPlainFIFO(t *testing.T) {
	f := newFrontier(true)
	f.Push(FrontierItem{URL: mustURL(t, "https://a.example/1")})
	f.Push(FrontierItem{URL: mustURL(t, "https://a.example/2")})

	first, ok := f.Pop()
	if !ok || first.URL.Path != "/1" {
		t.Fatalf("Pop() = %+v, %v, want /1", first, ok)
	}
	second, ok := f.Pop()
	if !ok || second.URL.Path != "/2" {
		t.Fatalf("Pop() = %+v, %v, want /2", second, ok)
	}
	if _, ok := f.Pop(); ok {
		t.Fatal("expected Pop on an empty frontier to report ok=false")
	}
}

func TestFrontierPerHostDelayGatesPop(t *testing.T) {
	f := newFrontier(false)
	f.SetHostDelay("a.example", time.Hour)
	f.Push(FrontierItem{URL: mustURL(t, "https://a.example/1")})
	f.Push(FrontierItem{URL: mustURL(t, "https://b.example/1")})

	// a.example isn't rate-limited yet (no prior Pop set nextAllowed), so
	// its item is dispatched first and only then becomes rate-limited.
	item, ok := f.Pop()
	if !ok || item.URL.Hostname() != "a.example" {
		t.Fatalf("Pop() = %+v, want a.example first", item)
	}

	// a.example is now rate-limited for an hour; b.example should still
	// be poppable even though it was pushed second.
	item, ok = f.Pop()
	if !ok || item.URL.Hostname() != "b.example" {
		t.Fatalf("Pop() = %+v, want b.example to skip past the rate-limited host", item)
	}

	if _, ok := f.Pop(); ok {
		t.Fatal("expected the only remaining item (a.example) to still be rate-limited")
	}
}

func TestFrontierLen(t *testing.T) {
	f := newFrontier(true)
	if f.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", f.Len())
	}
	f.Push(FrontierItem{URL: mustURL(t, "https://a.example/1")})
	f.Push(FrontierItem{URL: mustURL(t, "https://a.example/2")})
	if f.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", f.Len())
	}
	f.Pop()
	if f.Len() != 1 {
		t.Fatalf("Len() after one Pop = %d, want 1", f.Len())
	}
}
