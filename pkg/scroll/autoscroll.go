package scroll

import (
	"sync"

	"golang.org/x/net/html"
)

// AutoScroll is an Observer that behaves like a reader who keeps scrolling
// to the bottom: every armed card is reported as intersecting right away,
// even when it is the card reported before and the page in between added
// nothing. The entry stream is closed when a load stalls or nothing is
// armed.
type AutoScroll struct {
	mu       sync.Mutex
	entries  chan Entry
	closed   bool
	observed int
}

// NewAutoScroll creates an auto scrolling observer.
func NewAutoScroll() *AutoScroll {
	return &AutoScroll{entries: make(chan Entry, 1)}
}

// Entries returns the stream to pass to Trigger.Run.
func (a *AutoScroll) Entries() <-chan Entry {
	return a.entries
}

// Observe implements Observer.
func (a *AutoScroll) Observe(target *html.Node) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	if target == nil {
		a.closeLocked()
		return
	}

	a.observed++
	select {
	case a.entries <- Entry{Target: target, Intersecting: true}:
	default:
	}
}

// Unobserve implements Observer.
func (a *AutoScroll) Unobserve(*html.Node) {}

// Stalled implements StallObserver by ending the entry stream.
func (a *AutoScroll) Stalled(*html.Node) {
	a.Close()
}

// Observed returns how many intersections were reported.
func (a *AutoScroll) Observed() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.observed
}

// Close ends the entry stream.
func (a *AutoScroll) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()
}

func (a *AutoScroll) closeLocked() {
	if !a.closed {
		a.closed = true
		close(a.entries)
	}
}
