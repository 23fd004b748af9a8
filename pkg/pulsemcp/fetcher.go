package pulsemcp

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/mcp-remote-catalog/pkg/client"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for the slug fetcher.
var (
	slugsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpcatalog_pulsemcp_slugs_total",
		Help: "Total slugs processed by outcome",
	}, []string{"outcome"})

	endpointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcpcatalog_pulsemcp_endpoints_total",
		Help: "Total endpoint records extracted from pulsemcp",
	})
)

// Defaults for the pulsemcp source.
const (
	DefaultBaseURL        = "https://www.pulsemcp.com"
	DefaultUserAgent      = "Mozilla/5.0"
	DefaultTimeout        = 15 * time.Second
	DefaultMaxConcurrency = 20
	DefaultProgressEvery  = 50
)

// Getter fetches a URL and returns its body. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Config holds fetcher configuration.
type Config struct {
	// BaseURL is the pulsemcp site root.
	BaseURL string

	// MaxConcurrency is the maximum number of in-flight requests.
	MaxConcurrency int

	// ProgressEvery logs progress after this many completed slugs.
	ProgressEvery int
}

// DefaultConfig returns the default fetcher configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		MaxConcurrency: DefaultMaxConcurrency,
		ProgressEvery:  DefaultProgressEvery,
	}
}

// Fetcher turns slugs into endpoint records using a bounded worker pool.
type Fetcher struct {
	getter Getter
	config Config
	logger zerolog.Logger
}

// NewFetcher creates a new fetcher. Zero config values fall back to defaults.
func NewFetcher(getter Getter, config Config) (*Fetcher, error) {
	if getter == nil {
		return nil, fmt.Errorf("getter is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultMaxConcurrency
	}
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = DefaultProgressEvery
	}

	return &Fetcher{
		getter: getter,
		config: config,
		logger: log.With().Str("component", "pulsemcp").Logger(),
	}, nil
}

// WithLogger returns a copy of the fetcher that logs to logger.
func (f *Fetcher) WithLogger(logger zerolog.Logger) *Fetcher {
	cp := *f
	cp.logger = logger
	return &cp
}

// ServerJSONURL returns the serverjson page URL of slug.
func (f *Fetcher) ServerJSONURL(slug string) string {
	return fmt.Sprintf("%s/servers/%s/serverjson", f.config.BaseURL, url.PathEscape(slug))
}

// FetchOne fetches and parses a single slug. It never returns an error;
// failures are reported in Result.Reason.
func (f *Fetcher) FetchOne(ctx context.Context, slug string) Result {
	body, err := f.getter.Get(ctx, f.ServerJSONURL(slug))
	if err != nil {
		return failed(slug, err)
	}

	endpoints, err := ExtractEndpoints(slug, body)
	if err != nil {
		return failed(slug, err)
	}

	slugsTotal.WithLabelValues("ok").Inc()
	endpointsTotal.Add(float64(len(endpoints)))
	return Result{Slug: slug, Endpoints: endpoints}
}

func failed(slug string, err error) Result {
	reason, outcome := describeFailure(err)
	slugsTotal.WithLabelValues(outcome).Inc()
	return Result{Slug: slug, Reason: reason}
}

// describeFailure maps an error to its human-readable reason and metric outcome.
func describeFailure(err error) (reason, outcome string) {
	var fetchErr *client.FetchError
	switch {
	case errors.As(err, &fetchErr) && fetchErr.IsStatus():
		return fmt.Sprintf("HTTP %d", fetchErr.StatusCode), "http_error"
	case errors.As(err, &fetchErr):
		return "URL error: " + fetchErr.Reason(), "network_error"
	case errors.Is(err, ErrNoVersionsJSON):
		return err.Error(), "no_versions"
	case errors.Is(err, ErrEmptyVersions):
		return err.Error(), "empty_versions"
	case errors.Is(err, ErrNoRemotes):
		return err.Error(), "no_remotes"
	default:
		return err.Error(), "other"
	}
}

// FetchAll fetches every slug with at most MaxConcurrency requests in
// flight. Endpoints are concatenated in completion order. Every slug ends up
// either in Endpoints or in Failures.
func (f *Fetcher) FetchAll(ctx context.Context, slugs []string) *Summary {
	start := time.Now()
	summary := &Summary{Total: len(slugs)}
	if len(slugs) == 0 {
		return summary
	}

	workers := f.config.MaxConcurrency
	if workers > len(slugs) {
		workers = len(slugs)
	}

	f.logger.Info().
		Int("slugs", len(slugs)).
		Int("workers", workers).
		Msg("Starting slug fetch")

	slugQueue := make(chan string, len(slugs))
	results := make(chan Result, workers)

	for _, slug := range slugs {
		slugQueue <- slug
	}
	close(slugQueue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go f.worker(ctx, slugQueue, results, &wg, i)
	}

	// Close results channel when all workers are done
	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for result := range results {
		done++
		if result.OK() {
			summary.Succeeded++
			summary.Endpoints = append(summary.Endpoints, result.Endpoints...)
		} else {
			summary.Failures = append(summary.Failures, Failure{Slug: result.Slug, Reason: result.Reason})
			f.logger.Warn().
				Str("slug", result.Slug).
				Str("reason", result.Reason).
				Msg("Slug skipped")
		}

		if done%f.config.ProgressEvery == 0 {
			f.logger.Info().
				Int("done", done).
				Int("total", len(slugs)).
				Int("endpoints", len(summary.Endpoints)).
				Msg("Fetch progress")
		}
	}

	summary.Duration = time.Since(start)
	f.logger.Info().
		Int("slugs", len(slugs)).
		Int("endpoints", len(summary.Endpoints)).
		Int("failures", len(summary.Failures)).
		Dur("duration", summary.Duration).
		Msg("Fetch complete")

	return summary
}

// worker processes slugs from the queue. A fetch that has started runs to
// completion or to the request timeout even if ctx is cancelled meanwhile;
// slugs still queued after that are drained and reported as failures.
func (f *Fetcher) worker(ctx context.Context, slugQueue <-chan string, results chan<- Result, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for slug := range slugQueue {
		if err := ctx.Err(); err != nil {
			results <- failed(slug, err)
			continue
		}
		results <- f.FetchOne(context.WithoutCancel(ctx), slug)
		processed++
	}

	f.logger.Debug().
		Int("worker_id", workerID).
		Int("slugs_processed", processed).
		Msg("Worker completed")
}
