// Package client provides the HTTP client shared by both catalog pipelines:
// one GET per call, a per-request timeout, identifying headers, error
// classification and request metrics. It never retries.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for HTTP fetches.
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpcatalog_http_requests_total",
		Help: "Total HTTP requests by source and status",
	}, []string{"source", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mcpcatalog_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds by source",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"})

	httpErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mcpcatalog_http_errors_total",
		Help: "Total HTTP errors by source and class",
	}, []string{"source", "class"})
)

// ErrorClass represents a classification of fetch errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx and other unexpected non-2xx statuses.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassNetwork represents transport errors and timeouts.
	ErrorClassNetwork ErrorClass = "network"
)

// Default values.
const (
	DefaultTimeout = 30 * time.Second
	DefaultAccept  = "*/*"
)

// Client performs single GET requests with a fixed timeout.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// UserAgent header. Some sources reject requests without a
	// browser-like value.
	UserAgent string

	// Accept header (default: */*).
	Accept string

	// Timeout bounds one request including reading the body.
	Timeout time.Duration

	// Source labels metrics and log lines (e.g. "pulsemcp", "registry").
	Source string
}

// DefaultConfig returns a configuration with the default timeout.
func DefaultConfig(source, userAgent string) Config {
	return Config{
		UserAgent: userAgent,
		Accept:    DefaultAccept,
		Timeout:   DefaultTimeout,
		Source:    source,
	}
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %s)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Accept == "" {
		cfg.Accept = DefaultAccept
	}
	if cfg.Source == "" {
		cfg.Source = "default"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "http-client").Str("source", cfg.Source).Logger(),
	}, nil
}

// Get fetches rawURL and returns the response body. Non-2xx statuses and
// transport failures are returned as *FetchError.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, ErrEmptyURL
	}

	startTime := time.Now()
	defer func() {
		httpRequestDuration.WithLabelValues(c.config.Source).Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", c.config.Accept)

	c.logger.Debug().Str("url", rawURL).Msg("Executing request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.networkError(rawURL, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		class := classifyStatus(resp.StatusCode)
		httpErrorsTotal.WithLabelValues(c.config.Source, string(class)).Inc()
		httpRequestsTotal.WithLabelValues(c.config.Source, strconv.Itoa(resp.StatusCode)).Inc()

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)

		c.logger.Debug().
			Str("url", rawURL).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Request returned error status")

		return nil, &FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.networkError(rawURL, "read body", err)
	}

	httpRequestsTotal.WithLabelValues(c.config.Source, strconv.Itoa(resp.StatusCode)).Inc()
	c.logger.Debug().
		Str("url", rawURL).
		Int("status_code", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(startTime)).
		Msg("Request complete")

	return body, nil
}

func (c *Client) networkError(rawURL, msg string, err error) error {
	httpErrorsTotal.WithLabelValues(c.config.Source, string(ErrorClassNetwork)).Inc()
	httpRequestsTotal.WithLabelValues(c.config.Source, "network_error").Inc()
	if errors.Is(err, context.Canceled) {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("Request cancelled")
	} else {
		c.logger.Debug().Err(err).Str("url", rawURL).Msg("Request failed")
	}
	return &FetchError{
		URL:     rawURL,
		Class:   ErrorClassNetwork,
		Message: msg,
		Err:     err,
	}
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(status int) ErrorClass {
	if status >= 500 {
		return ErrorClassServer
	}
	return ErrorClassClient
}
