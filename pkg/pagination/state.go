package pagination

import "fmt"

// Defaults for the Pokedex page: ten pages of fifteen.
const (
	DefaultLimit    = 15
	DefaultMaxItems = 150
)

// State is the limit/offset pair used to request the next listing page.
// It is a value: every transition returns a new State.
type State struct {
	// Limit is the fixed page size.
	Limit int

	// Offset is the index of the first item of the next page.
	Offset int

	// Total is the terminal offset. Zero means not known yet.
	Total int
}

// New returns the state for the first page with the given page size.
func New(limit int) State {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return State{Limit: limit}
}

// Advance returns the state for the page after s.
func (s State) Advance() State {
	s.Offset += s.Limit
	return s
}

// WithTotal returns s with its terminal offset set to total.
// Non-positive totals are ignored.
func (s State) WithTotal(total int) State {
	if total > 0 {
		s.Total = total
	}
	return s
}

// Capped returns s with its terminal offset limited to ceiling.
// It is applied after WithTotal so the API count and a configured ceiling
// both bound the listing.
func (s State) Capped(ceiling int) State {
	if ceiling <= 0 {
		return s
	}
	if s.Total == 0 || s.Total > ceiling {
		s.Total = ceiling
	}
	return s
}

// Exhausted reports whether no further page should be requested.
func (s State) Exhausted() bool {
	return s.Total > 0 && s.Offset >= s.Total
}

// Page returns the zero-based page number of s.
func (s State) Page() int {
	if s.Limit <= 0 {
		return 0
	}
	return s.Offset / s.Limit
}

// String implements fmt.Stringer.
func (s State) String() string {
	return fmt.Sprintf("limit=%d offset=%d total=%d", s.Limit, s.Offset, s.Total)
}
