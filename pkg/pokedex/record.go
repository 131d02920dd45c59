package pokedex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Sternrassler/pokedex-scroll/pkg/pagination"
)

// Errors describing why a listing entry produced no record.
var (
	// ErrInvalidReference is returned when an id cannot be derived from a reference URL.
	ErrInvalidReference = errors.New("invalid pokemon reference")

	// ErrNoTypes is returned when a detail payload lists no types.
	ErrNoTypes = errors.New("pokemon has no types")
)

// Record is one fully resolved card ready for rendering.
// Types is never empty.
type Record struct {
	ID     string
	Name   string
	Types  []string
	ImgURL string
}

// PrimaryType returns the first type of the record.
func (r Record) PrimaryType() string {
	if len(r.Types) == 0 {
		return ""
	}
	return r.Types[0]
}

// Dropped is a listing entry that was left out of a page.
type Dropped struct {
	Name string
	URL  string
	Err  error
}

// Page is the outcome of fetching one listing page.
type Page struct {
	// State is the pagination state the page was requested with.
	State pagination.State

	// Records are the resolved cards in listing order.
	Records []Record

	// Dropped are the entries whose detail or image could not be resolved.
	Dropped []Dropped

	// Next is the state for the following page. It equals State when the
	// page failed as a whole.
	Next pagination.State
}

// Partial reports whether some entries of the page were dropped.
func (p *Page) Partial() bool {
	return len(p.Dropped) > 0
}

// ParseID derives the Pokemon id from a reference URL such as
// "https://pokeapi.co/api/v2/pokemon/25/", taking the second to last path
// segment.
func ParseID(rawURL string) (string, error) {
	segments := strings.Split(rawURL, "/")
	if len(segments) < 2 {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, rawURL)
	}

	id := segments[len(segments)-2]
	if id == "" || strings.HasSuffix(id, ":") {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, rawURL)
	}
	return id, nil
}
