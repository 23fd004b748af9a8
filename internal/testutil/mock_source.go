// Package testutil provides test servers that imitate the catalog sources.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockSource is a configurable HTTP server standing in for pulsemcp.com or
// the registry API. Unknown paths return 404.
type MockSource struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	requestCount  int
	inFlight      int
	maxInFlight   int
	requestedURIs []string
	lastHeader    http.Header
}

// NewMockSource creates and starts a new mock source.
func NewMockSource() *MockSource {
	mock := &MockSource{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.inFlight++
		if mock.inFlight > mock.maxInFlight {
			mock.maxInFlight = mock.inFlight
		}
		mock.requestedURIs = append(mock.requestedURIs, r.URL.RequestURI())
		mock.lastHeader = r.Header.Clone()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		defer func() {
			mock.mu.Lock()
			mock.inFlight--
			mock.mu.Unlock()
		}()

		if exists {
			handler(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	mock.server.Config.SetKeepAlivesEnabled(false)

	return mock
}

// URL returns the mock server URL.
func (m *MockSource) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSource) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockSource) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.maxInFlight = 0
	m.requestedURIs = nil
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockSource) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockSource) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		status := resp.StatusCode
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// SetServerJSON configures the pulsemcp serverjson page of slug.
func (m *MockSource) SetServerJSON(slug string, resp MockResponse) {
	m.SetResponse(fmt.Sprintf("/servers/%s/serverjson", slug), resp)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSource) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// GetMaxInFlight returns the highest number of concurrent requests observed.
func (m *MockSource) GetMaxInFlight() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxInFlight
}

// GetRequestedURIs returns path and query of every request in arrival order.
func (m *MockSource) GetRequestedURIs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.requestedURIs))
	copy(out, m.requestedURIs)
	return out
}

// GetLastHeader returns the headers of the most recent request.
func (m *MockSource) GetLastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader
}

// NewServerJSONPage wraps blob in an HTML page the way pulsemcp embeds its
// server definitions, preceded by unrelated script blocks.
func NewServerJSONPage(blob string) MockResponse {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>server.json</title>")
	b.WriteString(`<script src="/_next/static/chunks/main.js"></script>`)
	b.WriteString(`<script>window.dataLayer = window.dataLayer || [];</script>`)
	b.WriteString("</head><body><div id=\"root\"></div>")
	b.WriteString(`<script type="application/json">`)
	b.WriteString(blob)
	b.WriteString("</script></body></html>")

	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       b.String(),
		Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
	}
}

// NewJSONResponse creates a 200 OK response with a JSON body.
func NewJSONResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewStatusResponse creates an error response with the given status.
func NewStatusResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       http.StatusText(status),
	}
}

// RegistryEntry describes one server entry of a registry list page.
type RegistryEntry struct {
	Name        string
	Version     string
	Description string
	Remotes     []map[string]any
	Packages    []map[string]any
}

// RegistryPage renders entries as a registry list response body.
func RegistryPage(entries ...RegistryEntry) string {
	servers := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		server := map[string]any{
			"name":        e.Name,
			"version":     e.Version,
			"description": e.Description,
		}
		if e.Remotes != nil {
			server["remotes"] = e.Remotes
		}
		if e.Packages != nil {
			server["packages"] = e.Packages
		}
		servers = append(servers, map[string]any{"server": server})
	}

	data, err := json.Marshal(map[string]any{
		"servers":  servers,
		"metadata": map[string]any{"count": len(servers)},
	})
	if err != nil {
		panic(err)
	}
	return string(data)
}

// RegistryEntries generates n entries named prefix-0..n-1, each with one
// streamable-http remote.
func RegistryEntries(prefix string, n int) []RegistryEntry {
	entries := make([]RegistryEntry, n)
	for i := range entries {
		name := fmt.Sprintf("%s-%d", prefix, i)
		entries[i] = RegistryEntry{
			Name:        name,
			Version:     "1.0.0",
			Description: "generated " + name,
			Remotes: []map[string]any{
				{"type": "streamable-http", "url": "https://" + name + ".example.com/mcp"},
			},
		}
	}
	return entries
}
