// Package pulsemcp fetches remote MCP endpoints for a curated list of
// pulsemcp.com server slugs.
//
// Each slug is fetched from {base}/servers/{slug}/serverjson. The page is HTML
// with the server definition embedded in one of its <script> elements; the
// first script whose text is a JSON object with a top-level "versions" key is
// used, and the remotes of versions[0].data become EndpointRecords.
//
// Example usage:
//
//	c, _ := client.New(client.Config{UserAgent: "Mozilla/5.0", Timeout: 15 * time.Second, Source: "pulsemcp"})
//	fetcher, _ := pulsemcp.NewFetcher(c, pulsemcp.DefaultConfig())
//	summary := fetcher.FetchAll(ctx, pulsemcp.DefaultSlugs())
//
// The fetcher:
//   - Dispatches every slug to a bounded worker pool (default 20 workers)
//   - Collects results in completion order with progress logging
//   - Never retries; a failed slug is reported with a short reason
//   - Accounts for every slug exactly once, as endpoints or as a failure
//   - Lets started requests finish after cancellation; unstarted slugs fail
package pulsemcp
