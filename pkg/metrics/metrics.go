// Package metrics documents the Prometheus metrics of the pokedex pipeline
// and writes them out for batch runs.
//
// Metrics are defined in their respective packages (client, pokedex,
// scroll) via promauto so that each package stays self-contained.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by the pipeline.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all gathered metrics to path in the text exposition
// format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - pokeapi_requests_total{endpoint, status} (Counter): Requests by endpoint label and HTTP status
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint label
//   - pokeapi_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Page Metrics (pkg/pokedex):
//   - pokedex_pages_total{result} (Counter): Pages loaded by result (ok, error)
//   - pokedex_records_total (Counter): Cards assembled
//   - pokedex_items_dropped_total (Counter): Listing entries dropped
//   - pokedex_page_duration_seconds (Histogram): Full page fetch duration
//
// Scroll Metrics (pkg/scroll):
//   - pokedex_scroll_state{state} (Gauge): 1 for the current trigger state
//   - pokedex_scroll_intersections_total{outcome} (Counter): Entries by outcome
//     (load, exhausted, ignored, not_intersecting)
//
// Example Prometheus Queries:
//
//   # Share of entries dropped
//   rate(pokedex_items_dropped_total[5m]) /
//   (rate(pokedex_records_total[5m]) + rate(pokedex_items_dropped_total[5m]))
//
//   # Failed pages
//   increase(pokedex_pages_total{result="error"}[1h])
//
//   # P95 detail latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket{endpoint="/pokemon/{id}"}[5m]))
