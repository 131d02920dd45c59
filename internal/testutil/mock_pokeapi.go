// Package testutil provides testing utilities for the pokedex pipeline.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"
)

// APIPrefix is the path under which the mock serves the PokeAPI routes.
const APIPrefix = "/api/v2"

// MockPokemon is one entry served by the mock API.
type MockPokemon struct {
	ID    int
	Name  string
	Types []string
}

// MockPokeAPI is a configurable mock PokeAPI server for testing.
// It serves the listing and detail endpoints under APIPrefix and image
// assets under /assets/img/.
type MockPokeAPI struct {
	server *httptest.Server
	mu     sync.RWMutex

	roster        []MockPokemon
	count         int
	listingStatus int
	listingBody   string
	failDetail    map[int]int
	missingImage  map[int]bool
	delay         time.Duration

	// Tracking
	RequestCount     int
	ListingOffsets   []int
	LastRequestAgent string
}

// NewMockPokeAPI creates a mock server serving the given roster.
// The reported count defaults to len(roster).
func NewMockPokeAPI(roster []MockPokemon) *MockPokeAPI {
	mock := &MockPokeAPI{
		roster:       roster,
		count:        len(roster),
		failDetail:   make(map[int]int),
		missingImage: make(map[int]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(APIPrefix+"/pokemon", mock.listingHandler)
	mux.HandleFunc(APIPrefix+"/pokemon/", mock.detailHandler)
	mux.HandleFunc("/assets/img/", mock.imageHandler)

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestAgent = r.Header.Get("User-Agent")
		delay := mock.delay
		mock.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		mux.ServeHTTP(w, r)
	}))

	return mock
}

// Roster generates n Pokemon with ids 1..n, alternating grass and fire types.
func Roster(n int) []MockPokemon {
	roster := make([]MockPokemon, n)
	for i := range roster {
		types := []string{"grass", "poison"}
		if i%2 == 1 {
			types = []string{"fire"}
		}
		roster[i] = MockPokemon{ID: i + 1, Name: fmt.Sprintf("pokemon-%d", i+1), Types: types}
	}
	return roster
}

// URL returns the mock server root URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root to configure a client with.
func (m *MockPokeAPI) BaseURL() string {
	return m.server.URL + APIPrefix
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// SetCount overrides the count reported by the listing endpoint.
func (m *MockPokeAPI) SetCount(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = count
}

// SetListingResponse makes the listing endpoint answer with status and body.
// A zero status restores normal behavior.
func (m *MockPokeAPI) SetListingResponse(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listingStatus = status
	m.listingBody = body
}

// FailDetail makes the detail endpoint for id answer with status.
func (m *MockPokeAPI) FailDetail(id, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failDetail[id] = status
}

// RemoveImage makes the image asset for id answer 404.
func (m *MockPokeAPI) RemoveImage(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missingImage[id] = true
}

// SetDelay adds latency to every request.
func (m *MockPokeAPI) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetListingOffsets returns the offsets requested from the listing endpoint.
func (m *MockPokeAPI) GetListingOffsets() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int(nil), m.ListingOffsets...)
}

func (m *MockPokeAPI) listingHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	m.mu.Lock()
	m.ListingOffsets = append(m.ListingOffsets, offset)
	status, body, count := m.listingStatus, m.listingBody, m.count
	m.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		w.Write([]byte(body))
		return
	}

	end := offset + limit
	if end > len(m.roster) {
		end = len(m.roster)
	}
	results := []map[string]string{}
	for i := offset; i < end; i++ {
		p := m.roster[i]
		results = append(results, map[string]string{
			"name": p.Name,
			"url":  fmt.Sprintf("%s%s/pokemon/%d/", m.server.URL, APIPrefix, p.ID),
		})
	}

	writeJSON(w, map[string]any{
		"count":    count,
		"next":     nil,
		"previous": nil,
		"results":  results,
	})
}

func (m *MockPokeAPI) detailHandler(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, APIPrefix+"/pokemon/"), "/")
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	m.mu.RLock()
	status, failing := m.failDetail[id]
	m.mu.RUnlock()
	if failing {
		w.WriteHeader(status)
		w.Write([]byte(`{"detail": "injected failure"}`))
		return
	}

	p, ok := m.find(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	types := make([]map[string]any, 0, len(p.Types))
	for i, name := range p.Types {
		types = append(types, map[string]any{
			"slot": i + 1,
			"type": map[string]string{"name": name, "url": "https://pokeapi.co/api/v2/type/" + name + "/"},
		})
	}

	writeJSON(w, map[string]any{
		"id":    p.ID,
		"name":  p.Name,
		"types": types,
	})
}

func (m *MockPokeAPI) imageHandler(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/assets/img/"), ".png")
	id, err := strconv.Atoi(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	m.mu.RLock()
	missing := m.missingImage[id]
	m.mu.RUnlock()

	if _, ok := m.find(id); !ok || missing {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write([]byte("\x89PNG\r\n\x1a\n"))
	}
}

func (m *MockPokeAPI) find(id int) (MockPokemon, bool) {
	for _, p := range m.roster {
		if p.ID == id {
			return p, true
		}
	}
	return MockPokemon{}, false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
