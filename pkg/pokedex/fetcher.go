// Package pokedex assembles pages of Pokemon cards from the PokeAPI listing.
//
// A page fetch lists item references, then resolves every reference's
// detail payload and image asset concurrently. Each item is resolved as a
// single unit: it either yields a complete Record or is dropped.
package pokedex

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/pokedex-scroll/pkg/assets"
	"github.com/Sternrassler/pokedex-scroll/pkg/client"
	"github.com/Sternrassler/pokedex-scroll/pkg/logging"
	"github.com/Sternrassler/pokedex-scroll/pkg/pagination"
	"github.com/Sternrassler/pokedex-scroll/pkg/settle"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for page assembly.
var (
	pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_pages_total",
		Help: "Total listing pages fetched by result",
	}, []string{"result"})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokedex_records_total",
		Help: "Total cards assembled",
	})

	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokedex_items_dropped_total",
		Help: "Total listing entries dropped because detail or image failed",
	})

	pageDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pokedex_page_duration_seconds",
		Help:    "Duration of a full page fetch in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
)

// API is the subset of the PokeAPI client used by the fetcher.
type API interface {
	ListPokemon(ctx context.Context, limit, offset int) (*client.Listing, error)
	GetPokemon(ctx context.Context, rawURL string) (*client.Pokemon, error)
}

// Config holds fetcher configuration.
type Config struct {
	// Concurrency bounds the item resolutions in flight per page.
	// Zero resolves the whole page at once.
	Concurrency int

	// MaxItems caps the terminal offset below the API count. Zero means
	// the API count alone decides.
	MaxItems int
}

// DefaultConfig returns the default fetcher configuration:
// a whole page in flight and ten pages at most.
func DefaultConfig() Config {
	return Config{
		Concurrency: 0,
		MaxItems:    pagination.DefaultMaxItems,
	}
}

// Fetcher assembles pages of records.
type Fetcher struct {
	api       API
	images    assets.Resolver
	sanitizer *Sanitizer
	config    Config
	logger    zerolog.Logger
}

// New creates a fetcher.
func New(api API, images assets.Resolver, cfg Config) (*Fetcher, error) {
	if api == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if images == nil {
		return nil, fmt.Errorf("image resolver is required")
	}
	if cfg.Concurrency < 0 {
		return nil, fmt.Errorf("concurrency must be >= 0 (got %d)", cfg.Concurrency)
	}
	if cfg.MaxItems < 0 {
		return nil, fmt.Errorf("max items must be >= 0 (got %d)", cfg.MaxItems)
	}

	return &Fetcher{
		api:       api,
		images:    images,
		sanitizer: NewSanitizer(),
		config:    cfg,
		logger:    logging.NewLogger(logging.ComponentFetcher),
	}, nil
}

// FetchPage fetches the listing page described by state and resolves its
// entries. A failed listing request fails the whole page; failed entries
// are reported in Page.Dropped.
func (f *Fetcher) FetchPage(ctx context.Context, state pagination.State) (*Page, error) {
	start := time.Now()

	listing, err := f.api.ListPokemon(ctx, state.Limit, state.Offset)
	if err != nil {
		return nil, err
	}

	resolved := settle.All(ctx, listing.Results, f.config.Concurrency, f.resolve)

	page := &Page{
		State:   state,
		Records: resolved.Values,
		Next:    state.Advance().WithTotal(listing.Count).Capped(f.config.MaxItems),
	}
	for _, failure := range resolved.Failures {
		ref := listing.Results[failure.Index]
		page.Dropped = append(page.Dropped, Dropped{
			Name: ref.Name,
			URL:  ref.URL,
			Err:  failure.Err,
		})
		f.logger.Debug().
			Err(failure.Err).
			Str("name", ref.Name).
			Int("offset", state.Offset).
			Msg("Entry dropped")
	}

	recordsTotal.Add(float64(len(page.Records)))
	droppedTotal.Add(float64(len(page.Dropped)))
	pageDuration.Observe(time.Since(start).Seconds())

	f.logger.Info().
		Int("page", state.Page()).
		Int("offset", state.Offset).
		Int("records", len(page.Records)).
		Int("dropped", len(page.Dropped)).
		Int("next_offset", page.Next.Offset).
		Int("total", page.Next.Total).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")

	return page, nil
}

// Load is FetchPage with page-level failures absorbed: the error is logged
// and an empty page is returned whose Next equals state.
func (f *Fetcher) Load(ctx context.Context, state pagination.State) *Page {
	page, err := f.FetchPage(ctx, state)
	if err != nil {
		pagesTotal.WithLabelValues("error").Inc()
		f.logger.Error().
			Err(err).
			Int("offset", state.Offset).
			Int("status", client.StatusCode(err)).
			Msg("Something went wrong fetching pokemon")
		return &Page{State: state, Next: state}
	}

	pagesTotal.WithLabelValues("ok").Inc()
	return page
}

// resolve turns one listing entry into a record. The detail and the image
// are resolved together so a record is only built when both succeed.
func (f *Fetcher) resolve(ctx context.Context, ref client.NamedResource) (Record, error) {
	id, err := ParseID(f.sanitizer.Text(ref.URL))
	if err != nil {
		return Record{}, err
	}

	detail, err := f.api.GetPokemon(ctx, ref.URL)
	if err != nil {
		return Record{}, err
	}

	types := make([]string, 0, len(detail.Types))
	for _, name := range detail.TypeNames() {
		if clean := f.sanitizer.Label(name); clean != "" {
			types = append(types, clean)
		}
	}
	if len(types) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrNoTypes, ref.Name)
	}

	imgURL, err := f.images.Resolve(ctx, id)
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:     id,
		Name:   f.sanitizer.Text(ref.Name),
		Types:  types,
		ImgURL: imgURL,
	}, nil
}
