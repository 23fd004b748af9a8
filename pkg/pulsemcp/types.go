package pulsemcp

import (
	"sort"
	"time"
)

// DefaultTransport is used when a remote does not declare its type.
const DefaultTransport = "streamable-http"

// EndpointRecord is one remote endpoint of a pulsemcp server.
type EndpointRecord struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	URL       string `json:"url"`
	Transport string `json:"transport"`
}

// Failure pairs a slug with the reason it produced no endpoints.
type Failure struct {
	Slug   string `json:"slug"`
	Reason string `json:"reason"`
}

// Result is the outcome of fetching one slug. Exactly one of Endpoints
// (non-empty) or Reason is set.
type Result struct {
	Slug      string
	Endpoints []EndpointRecord
	Reason    string
}

// OK reports whether the slug produced endpoints.
func (r Result) OK() bool {
	return r.Reason == ""
}

// Summary aggregates the results of a FetchAll run.
type Summary struct {
	// Endpoints of all successful slugs in completion order.
	Endpoints []EndpointRecord

	// Failures in completion order. See SortedFailures.
	Failures []Failure

	// Succeeded counts slugs that produced endpoints.
	Succeeded int

	// Total is the number of slugs dispatched.
	Total int

	Duration time.Duration
}

// SortedFailures returns the failures ordered by slug.
func (s *Summary) SortedFailures() []Failure {
	sorted := make([]Failure, len(s.Failures))
	copy(sorted, s.Failures)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Slug != sorted[j].Slug {
			return sorted[i].Slug < sorted[j].Slug
		}
		return sorted[i].Reason < sorted[j].Reason
	})
	return sorted
}
