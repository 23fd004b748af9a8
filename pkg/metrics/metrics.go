// Package metrics exposes the Prometheus gatherer used by the catalog
// pipelines and pushes it to a Pushgateway at the end of a run.
// All metrics are defined in their respective packages (client, pulsemcp,
// registry) and registered via promauto.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Gatherer is the default Prometheus gatherer pushed at the end of a run.
var Gatherer = prometheus.DefaultGatherer

// Push sends every metric from gatherer to the Pushgateway at gatewayURL,
// replacing the previous values for job. An empty gatewayURL disables the push.
func Push(ctx context.Context, gatewayURL, job string, gatherer prometheus.Gatherer) error {
	if gatewayURL == "" {
		return nil
	}
	if job == "" {
		return fmt.Errorf("push job name is required")
	}
	if gatherer == nil {
		gatherer = Gatherer
	}

	if err := push.New(gatewayURL, job).Gatherer(gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}

// Metrics Documentation
//
// HTTP Metrics (pkg/client):
//   - mcpcatalog_http_requests_total{source, status} (Counter)
//   - mcpcatalog_http_request_duration_seconds{source} (Histogram)
//   - mcpcatalog_http_errors_total{source, class} (Counter): class is client, server or network
//
// Slug Fetcher Metrics (pkg/pulsemcp):
//   - mcpcatalog_pulsemcp_slugs_total{outcome} (Counter): outcome is ok or a failure kind
//   - mcpcatalog_pulsemcp_endpoints_total (Counter): endpoint records emitted
//
// Registry Walker Metrics (pkg/registry):
//   - mcpcatalog_registry_pages_total (Counter): pages fetched
//   - mcpcatalog_registry_records_total (Counter): records kept after dedup
//   - mcpcatalog_registry_duplicates_total (Counter): records dropped by (name, url) dedup
//
// Example Prometheus Queries:
//
//   # Slug failure ratio of the last push
//   sum(mcpcatalog_pulsemcp_slugs_total{outcome!="ok"}) / sum(mcpcatalog_pulsemcp_slugs_total)
//
//   # P95 request latency per source
//   histogram_quantile(0.95, sum by (source, le) (mcpcatalog_http_request_duration_seconds_bucket))
