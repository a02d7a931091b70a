package orchestrator

import (
	"sync"
	"time"
)

// frontier is the orchestrator's MPMC FIFO queue of pending fetches. When
// sharedQueue is false, per-host crawl-delay is respected: Pop skips over
// items whose host isn't yet due, preserving FIFO order among the hosts
// that are ready.
type frontier struct {
	mu          sync.Mutex
	items       []FrontierItem
	sharedQueue bool
	delay       map[string]time.Duration // per-host delay (max of robots crawl-delay and configured delay)
	nextAllowed map[string]time.Time
}

func newFrontier(sharedQueue bool) *frontier {
	return &frontier{
		sharedQueue: sharedQueue,
		delay:       map[string]time.Duration{},
		nextAllowed: map[string]time.Time{},
	}
}

// Push enqueues item at the tail.
func (f *frontier) Push(item FrontierItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
}

// SetHostDelay records the effective crawl-delay for host, applied on the
// next Pop that dispatches an item for it.
func (f *frontier) SetHostDelay(host string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[host] = d
}

// Pop returns the next eligible item in FIFO order, or ok=false if the
// frontier is empty or every pending item's host is still rate-limited.
func (f *frontier) Pop() (item FrontierItem, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.items) == 0 {
		return FrontierItem{}, false
	}
	if f.sharedQueue {
		item, f.items = f.items[0], f.items[1:]
		return item, true
	}

	now := time.Now()
	for i, it := range f.items {
		host := it.URL.Hostname()
		if now.Before(f.nextAllowed[host]) {
			continue
		}
		f.items = append(f.items[:i:i], f.items[i+1:]...)
		if d := f.delay[host]; d > 0 {
			f.nextAllowed[host] = now.Add(d)
		}
		return it, true
	}
	return FrontierItem{}, false
}

// Len reports the number of pending items.
func (f *frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
