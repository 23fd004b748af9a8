// Package registry walks the MCP registry server list and extracts remote
// endpoint records, deduplicated by (name, url) across the whole walk.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Prometheus metrics for the registry walk.
var (
	pagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcpcatalog_registry_pages_total",
		Help: "Total registry pages fetched and decoded",
	})

	recordsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcpcatalog_registry_records_total",
		Help: "Total registry records kept after deduplication",
	})

	duplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mcpcatalog_registry_duplicates_total",
		Help: "Total registry records dropped as (name, url) duplicates",
	})
)

// ErrMalformedPage is returned when a page body is not a JSON list response.
var ErrMalformedPage = errors.New("malformed registry page")

// Defaults for the registry source.
const (
	DefaultBaseURL   = "https://registry.modelcontextprotocol.io/v0.1/servers"
	DefaultUserAgent = "mcp-remote-catalog/0.1.0"
	DefaultTimeout   = 30 * time.Second
	DefaultPageSize  = 30
)

// StopReason describes why a walk ended.
type StopReason string

const (
	// StopShortPage: the page had fewer entries than the page size.
	StopShortPage StopReason = "short_page"

	// StopCursorUnchanged: the derived cursor equals the one just used.
	StopCursorUnchanged StopReason = "cursor_unchanged"

	// StopEmptyPage: the page decoded but had no entries.
	StopEmptyPage StopReason = "empty_page"

	// StopEmptyBody: the response body was empty.
	StopEmptyBody StopReason = "empty_body"

	// StopTransportError: the request failed.
	StopTransportError StopReason = "transport_error"

	// StopMalformedPage: the body was not valid JSON.
	StopMalformedPage StopReason = "malformed_page"

	// StopInterrupted: ctx was cancelled before the walk finished.
	StopInterrupted StopReason = "interrupted"
)

// Getter fetches a URL and returns its body. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) ([]byte, error)
}

// Config holds walker configuration.
type Config struct {
	// BaseURL is the server list endpoint.
	BaseURL string

	// PageSize is the entry count below which a page is the last one.
	PageSize int
}

// DefaultConfig returns the default walker configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		PageSize: DefaultPageSize,
	}
}

// Result is the outcome of a walk.
type Result struct {
	// Records are the deduplicated records in first-seen order.
	Records []ServerRecord

	// Pages counts decoded pages.
	Pages int

	// Duplicates counts records dropped by the (name, url) rule.
	Duplicates int

	StopReason StopReason

	// TransportErr is set when StopReason is StopTransportError.
	TransportErr error

	Duration time.Duration
}

// Walker traverses the paginated server list sequentially.
type Walker struct {
	getter  Getter
	config  Config
	baseURL *url.URL
	logger  zerolog.Logger
}

// NewWalker creates a new walker. Zero config values fall back to defaults.
func NewWalker(getter Getter, config Config) (*Walker, error) {
	if getter == nil {
		return nil, fmt.Errorf("getter is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}

	base, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", config.BaseURL)
	}

	return &Walker{
		getter:  getter,
		config:  config,
		baseURL: base,
		logger:  log.With().Str("component", "registry").Logger(),
	}, nil
}

// WithLogger returns a copy of the walker that logs to logger.
func (w *Walker) WithLogger(logger zerolog.Logger) *Walker {
	cp := *w
	cp.logger = logger
	return &cp
}

// PageURL returns the list URL for cursor. An empty cursor requests the
// first page.
func (w *Walker) PageURL(cursor string) string {
	u := *w.baseURL
	if cursor != "" {
		q := u.Query()
		q.Set("cursor", cursor)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// Walk fetches pages until pagination signals the end. A failed request or
// an empty body ends the walk normally with the records gathered so far. A
// malformed page returns ErrMalformedPage together with the partial result.
// Cancelling ctx lets the current page request finish, then returns ctx's
// error instead of a normal stop.
func (w *Walker) Walk(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Records: make([]ServerRecord, 0)}
	seen := make(map[dedupKey]struct{})
	cursor := ""

	defer func() {
		res.Duration = time.Since(start)
	}()

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			res.StopReason = StopInterrupted
			return res, fmt.Errorf("walk interrupted before page %d: %w", page, err)
		}

		w.logger.Info().
			Int("page", page).
			Str("cursor", cursor).
			Msg("Fetching page")

		body, err := w.getter.Get(context.WithoutCancel(ctx), w.PageURL(cursor))
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.StopReason = StopInterrupted
			return res, fmt.Errorf("walk interrupted at page %d: %w", page, ctxErr)
		}
		if err != nil {
			w.logger.Warn().
				Err(err).
				Int("page", page).
				Int("records", len(res.Records)).
				Msg("Page fetch failed, ending walk")
			res.StopReason = StopTransportError
			res.TransportErr = err
			return res, nil
		}

		if len(bytes.TrimSpace(body)) == 0 {
			res.StopReason = StopEmptyBody
			return res, nil
		}

		var list listPage
		if err := json.Unmarshal(body, &list); err != nil {
			res.StopReason = StopMalformedPage
			return res, fmt.Errorf("%w: page %d: %v", ErrMalformedPage, page, err)
		}
		res.Pages++
		pagesTotal.Inc()

		if len(list.Servers) == 0 {
			res.StopReason = StopEmptyPage
			return res, nil
		}

		added := 0
		for i, raw := range list.Servers {
			var entry ServerResponse
			if err := json.Unmarshal(raw, &entry); err != nil {
				w.logger.Debug().
					Err(err).
					Int("page", page).
					Int("entry", i).
					Msg("Skipping undecodable entry")
				continue
			}
			for _, rec := range ExtractRecords(entry) {
				k := rec.key()
				if _, dup := seen[k]; dup {
					res.Duplicates++
					duplicatesTotal.Inc()
					continue
				}
				seen[k] = struct{}{}
				res.Records = append(res.Records, rec)
				added++
			}
		}
		recordsTotal.Add(float64(added))

		w.logger.Info().
			Int("page", page).
			Int("entries", len(list.Servers)).
			Int("new_records", added).
			Int("total", len(res.Records)).
			Msg("Page processed")

		next := cursorFor(list.Servers[len(list.Servers)-1])
		if next == cursor {
			res.StopReason = StopCursorUnchanged
			return res, nil
		}
		if len(list.Servers) < w.config.PageSize {
			res.StopReason = StopShortPage
			return res, nil
		}
		cursor = next
	}
}

// cursorFor derives the next cursor from the last entry of a page as
// "name:version".
func cursorFor(last json.RawMessage) string {
	server := gjson.GetBytes(last, "server")
	return server.Get("name").String() + ":" + server.Get("version").String()
}
