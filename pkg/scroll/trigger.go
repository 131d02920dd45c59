// Package scroll drives infinite scrolling: it watches the last rendered
// card and loads the next page when that card comes into view.
//
// Visibility is injected. The Trigger arms and disarms an Observer on the
// last card and consumes Entry values describing intersections, so the
// same state machine runs against a real viewport or a test driver.
package scroll

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/pokedex-scroll/pkg/logging"
	"github.com/Sternrassler/pokedex-scroll/pkg/pagination"
	"github.com/Sternrassler/pokedex-scroll/pkg/pokedex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
)

var (
	triggerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pokedex_scroll_state",
		Help: "1 for the current scroll trigger state, 0 otherwise",
	}, []string{"state"})

	intersectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_scroll_intersections_total",
		Help: "Intersection entries received by outcome",
	}, []string{"outcome"})
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("trigger already started")

// State is the trigger state.
type State int

const (
	// Idle observes the last card and waits for it to intersect.
	Idle State = iota

	// InFlight is loading and rendering a page.
	InFlight

	// Exhausted has reached the terminal offset and loads nothing more.
	Exhausted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case InFlight:
		return "in_flight"
	case Exhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Entry reports a visibility change of an observed node.
type Entry struct {
	Target       *html.Node
	Intersecting bool
}

// Observer watches nodes for visibility.
type Observer interface {
	Observe(target *html.Node)
	Unobserve(target *html.Node)
}

// StallObserver is an Observer that is told when a load did not advance
// pagination. The trigger calls Stalled instead of Observe when it re-arms
// the same card after a failed page.
type StallObserver interface {
	Observer
	Stalled(target *html.Node)
}

// Loader loads one page of records. *pokedex.Fetcher satisfies it; Load
// must absorb page-level failures.
type Loader interface {
	Load(ctx context.Context, state pagination.State) *pokedex.Page
}

// Renderer appends records and reports the last rendered card.
// *render.Document satisfies it.
type Renderer interface {
	Append(records []pokedex.Record)
	LastItem() *html.Node
}

// Trigger is the infinite scroll state machine.
type Trigger struct {
	loader   Loader
	renderer Renderer
	observer Observer
	logger   zerolog.Logger

	mu      sync.Mutex
	state   State
	page    pagination.State
	target  *html.Node
	started bool
	pages   int
}

// NewTrigger creates a trigger that starts from initial.
func NewTrigger(loader Loader, renderer Renderer, observer Observer, initial pagination.State) *Trigger {
	t := &Trigger{
		loader:   loader,
		renderer: renderer,
		observer: observer,
		logger:   logging.NewLogger(logging.ComponentScroll),
		page:     initial,
	}
	t.setState(Idle)
	return t
}

// Start loads and renders the first page, then arms on the last card.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}
	t.started = true
	t.setState(InFlight)
	state := t.page
	t.mu.Unlock()

	t.loadAndArm(ctx, state)
	return nil
}

// Handle processes one intersection entry. It returns once any page it
// triggered has been loaded and rendered.
func (t *Trigger) Handle(ctx context.Context, entry Entry) {
	t.mu.Lock()
	if !entry.Intersecting {
		t.mu.Unlock()
		intersectionsTotal.WithLabelValues("not_intersecting").Inc()
		return
	}
	if t.state != Idle || t.target == nil || entry.Target != t.target {
		t.mu.Unlock()
		intersectionsTotal.WithLabelValues("ignored").Inc()
		return
	}

	t.observer.Unobserve(t.target)
	t.target = nil

	if t.page.Exhausted() {
		t.setState(Exhausted)
		offset := t.page.Offset
		t.mu.Unlock()
		intersectionsTotal.WithLabelValues("exhausted").Inc()
		t.logger.Debug().Int("offset", offset).Msg("Listing exhausted")
		return
	}

	t.setState(InFlight)
	state := t.page
	t.mu.Unlock()

	intersectionsTotal.WithLabelValues("load").Inc()
	t.loadAndArm(ctx, state)
}

// Run feeds entries to Handle until the trigger is exhausted, nothing is
// armed, entries is closed or ctx is done.
func (t *Trigger) Run(ctx context.Context, entries <-chan Entry) error {
	for {
		switch t.State() {
		case Exhausted:
			return nil
		case Idle:
			if t.Target() == nil {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			t.Handle(ctx, entry)
		}
	}
}

// State returns the current state.
func (t *Trigger) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Pagination returns the state the next page will be requested with.
func (t *Trigger) Pagination() pagination.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page
}

// Target returns the armed node, or nil.
func (t *Trigger) Target() *html.Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.target
}

// Pages returns the number of pages loaded so far, failed ones included.
func (t *Trigger) Pages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pages
}

func (t *Trigger) loadAndArm(ctx context.Context, state pagination.State) {
	page := t.loader.Load(ctx, state)
	t.renderer.Append(page.Records)
	last := t.renderer.LastItem()
	advanced := page.Next.Offset != state.Offset

	t.mu.Lock()
	t.page = page.Next
	t.pages++
	t.target = last
	t.setState(Idle)
	t.mu.Unlock()

	t.logger.Debug().
		Int("offset", state.Offset).
		Int("records", len(page.Records)).
		Int("next_offset", page.Next.Offset).
		Bool("armed", last != nil).
		Bool("advanced", advanced).
		Msg("Page rendered")

	// arm outside the lock: an observer may deliver entries synchronously
	if last == nil {
		return
	}
	if so, ok := t.observer.(StallObserver); ok && !advanced {
		so.Stalled(last)
		return
	}
	t.observer.Observe(last)
}

// setState must be called with t.mu held, or before t is shared.
func (t *Trigger) setState(s State) {
	t.state = s
	for _, candidate := range []State{Idle, InFlight, Exhausted} {
		v := 0.0
		if candidate == s {
			v = 1
		}
		triggerState.WithLabelValues(candidate.String()).Set(v)
	}
}
