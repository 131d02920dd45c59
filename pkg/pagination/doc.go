// Package pagination tracks the limit/offset window of the PokeAPI listing.
//
// The PokeAPI listing endpoint is paged with limit and offset query
// parameters and reports the total number of entries in its count field.
// State carries the fixed page size, the offset of the next page and the
// terminal offset. It is threaded explicitly by the caller: the fetcher
// returns the next State, nothing is kept in package globals.
//
// Example usage:
//
//	state := pagination.New(pagination.DefaultLimit).Capped(pagination.DefaultMaxItems)
//	for !state.Exhausted() {
//		page := fetcher.Load(ctx, state)
//		state = page.Next
//	}
//
// The terminal offset is the smaller of the API count and the configured
// ceiling (150 by default).
package pagination
