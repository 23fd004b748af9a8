package pulsemcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/mcp-remote-catalog/internal/testutil"
	"github.com/Sternrassler/mcp-remote-catalog/pkg/client"
)

func newTestFetcher(t *testing.T, baseURL string, concurrency int) *Fetcher {
	t.Helper()

	c, err := client.New(client.Config{
		UserAgent: DefaultUserAgent,
		Timeout:   2 * time.Second,
		Source:    "pulsemcp-test",
	})
	require.NoError(t, err)

	f, err := NewFetcher(c, Config{BaseURL: baseURL, MaxConcurrency: concurrency, ProgressEvery: 2})
	require.NoError(t, err)
	return f
}

func remotesBlob(title string, urls ...string) string {
	remotes := ""
	for i, u := range urls {
		if i > 0 {
			remotes += ","
		}
		remotes += fmt.Sprintf(`{"url":%q,"type":"sse"}`, u)
	}
	return fmt.Sprintf(`{"versions":[{"data":{"title":%q,"remotes":[%s]}}]}`, title, remotes)
}

func TestNewFetcher_Defaults(t *testing.T) {
	f, err := NewFetcher(&client.Client{}, Config{})
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, f.config.BaseURL)
	assert.Equal(t, DefaultMaxConcurrency, f.config.MaxConcurrency)
	assert.Equal(t, DefaultProgressEvery, f.config.ProgressEvery)
}

func TestNewFetcher_RequiresGetter(t *testing.T) {
	f, err := NewFetcher(nil, DefaultConfig())
	require.Error(t, err)
	assert.Nil(t, f)
	assert.Contains(t, err.Error(), "getter is required")
}

func TestServerJSONURL(t *testing.T) {
	f, err := NewFetcher(&client.Client{}, Config{BaseURL: "https://www.pulsemcp.com/"})
	require.NoError(t, err)
	assert.Equal(t, "https://www.pulsemcp.com/servers/upstash-context7/serverjson", f.ServerJSONURL("upstash-context7"))
}

func TestFetchOne(t *testing.T) {
	src := testutil.NewMockSource()
	defer src.Close()

	src.SetServerJSON("good", testutil.NewServerJSONPage(remotesBlob("Good", "https://good.example/mcp")))
	src.SetServerJSON("forbidden", testutil.NewStatusResponse(http.StatusForbidden))
	src.SetServerJSON("empty", testutil.NewServerJSONPage(`{"versions":[]}`))
	src.SetServerJSON("plain", testutil.MockResponse{StatusCode: http.StatusOK, Body: "<html></html>"})
	src.SetServerJSON("noremotes", testutil.NewServerJSONPage(`{"versions":[{"data":{"title":"N","remotes":[{"url":""}]}}]}`))

	f := newTestFetcher(t, src.URL(), 4)

	tests := []struct {
		slug   string
		reason string
		count  int
	}{
		{slug: "good", count: 1},
		{slug: "forbidden", reason: "HTTP 403"},
		{slug: "missing", reason: "HTTP 404"},
		{slug: "empty", reason: "empty versions"},
		{slug: "plain", reason: "no versions JSON found"},
		{slug: "noremotes", reason: "no remotes"},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			result := f.FetchOne(context.Background(), tt.slug)
			assert.Equal(t, tt.slug, result.Slug)
			assert.Equal(t, tt.reason, result.Reason)
			assert.Len(t, result.Endpoints, tt.count)
			assert.Equal(t, tt.reason == "", result.OK())
		})
	}

	assert.Equal(t, DefaultUserAgent, src.GetLastHeader().Get("User-Agent"))
}

func TestFetchOne_NetworkError(t *testing.T) {
	src := testutil.NewMockSource()
	baseURL := src.URL()
	src.Close()

	f := newTestFetcher(t, baseURL, 1)

	result := f.FetchOne(context.Background(), "down")
	assert.False(t, result.OK())
	assert.Contains(t, result.Reason, "URL error: ")
	assert.Empty(t, result.Endpoints)
}

func TestFetchOne_Timeout(t *testing.T) {
	src := testutil.NewMockSource()
	defer src.Close()

	slow := testutil.NewServerJSONPage(remotesBlob("Slow", "https://slow"))
	slow.Delay = 300 * time.Millisecond
	src.SetServerJSON("slow", slow)

	c, err := client.New(client.Config{UserAgent: DefaultUserAgent, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	f, err := NewFetcher(c, Config{BaseURL: src.URL()})
	require.NoError(t, err)

	result := f.FetchOne(context.Background(), "slow")
	assert.Equal(t, "URL error: timed out", result.Reason)
}

func TestDescribeFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		reason  string
		outcome string
	}{
		{
			name:    "status",
			err:     &client.FetchError{StatusCode: 500, Class: client.ErrorClassServer, Message: "500"},
			reason:  "HTTP 500",
			outcome: "http_error",
		},
		{
			name:    "network",
			err:     fmt.Errorf("wrapped: %w", &client.FetchError{Class: client.ErrorClassNetwork, Err: errors.New("connection reset")}),
			reason:  "URL error: connection reset",
			outcome: "network_error",
		},
		{name: "no versions", err: ErrNoVersionsJSON, reason: "no versions JSON found", outcome: "no_versions"},
		{name: "empty versions", err: ErrEmptyVersions, reason: "empty versions", outcome: "empty_versions"},
		{name: "no remotes", err: ErrNoRemotes, reason: "no remotes", outcome: "no_remotes"},
		{name: "other", err: errors.New("boom"), reason: "boom", outcome: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, outcome := describeFailure(tt.err)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestFetchAll_AccountsForEverySlug(t *testing.T) {
	src := testutil.NewMockSource()
	defer src.Close()

	var slugs []string
	for i := 0; i < 25; i++ {
		slug := fmt.Sprintf("server-%02d", i)
		slugs = append(slugs, slug)
		switch i % 5 {
		case 0:
			src.SetServerJSON(slug, testutil.NewStatusResponse(http.StatusInternalServerError))
		case 1:
			src.SetServerJSON(slug, testutil.NewServerJSONPage(`{"versions":[{"data":{"title":"x","remotes":[]}}]}`))
		case 2:
			src.SetServerJSON(slug, testutil.NewServerJSONPage(remotesBlob(slug, "https://"+slug+"/a", "https://"+slug+"/b")))
		default:
			src.SetServerJSON(slug, testutil.NewServerJSONPage(remotesBlob(slug, "https://"+slug+"/mcp")))
		}
	}

	okBefore := promtest.ToFloat64(slugsTotal.WithLabelValues("ok"))

	f := newTestFetcher(t, src.URL(), 6)
	summary := f.FetchAll(context.Background(), slugs)

	assert.Equal(t, 25, summary.Total)
	assert.Equal(t, 15, summary.Succeeded)
	assert.Len(t, summary.Failures, 10)
	assert.Len(t, summary.Endpoints, 20)
	assert.Equal(t, float64(15), promtest.ToFloat64(slugsTotal.WithLabelValues("ok"))-okBefore)

	seen := map[string]int{}
	for _, e := range summary.Endpoints {
		seen[e.Slug]++
	}
	for _, fl := range summary.Failures {
		_, dup := seen[fl.Slug]
		assert.False(t, dup, "slug %s reported as success and failure", fl.Slug)
		seen[fl.Slug]++
	}
	var accounted []string
	for slug := range seen {
		accounted = append(accounted, slug)
	}
	sort.Strings(accounted)
	assert.Equal(t, slugs, accounted)

	// Each slug's own records keep descriptor order.
	var multi []string
	for _, e := range summary.Endpoints {
		if e.Slug == "server-02" {
			multi = append(multi, e.URL)
		}
	}
	assert.Equal(t, []string{"https://server-02/a", "https://server-02/b"}, multi)

	sorted := summary.SortedFailures()
	assert.True(t, sort.SliceIsSorted(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug }))
	assert.Equal(t, Failure{Slug: "server-00", Reason: "HTTP 500"}, sorted[0])
	assert.Equal(t, Failure{Slug: "server-01", Reason: "no remotes"}, sorted[1])
}

func TestFetchAll_BoundedConcurrency(t *testing.T) {
	src := testutil.NewMockSource()
	defer src.Close()

	var slugs []string
	for i := 0; i < 24; i++ {
		slug := fmt.Sprintf("s%d", i)
		slugs = append(slugs, slug)
		resp := testutil.NewServerJSONPage(remotesBlob(slug, "https://"+slug))
		resp.Delay = 30 * time.Millisecond
		src.SetServerJSON(slug, resp)
	}

	f := newTestFetcher(t, src.URL(), 4)
	summary := f.FetchAll(context.Background(), slugs)

	assert.Equal(t, 24, summary.Succeeded)
	assert.Equal(t, 24, src.GetRequestCount())
	assert.LessOrEqual(t, src.GetMaxInFlight(), 4)
	assert.Greater(t, src.GetMaxInFlight(), 1)
}

func TestFetchAll_Empty(t *testing.T) {
	f, err := NewFetcher(&client.Client{}, DefaultConfig())
	require.NoError(t, err)
	summary := f.FetchAll(context.Background(), nil)

	assert.Equal(t, 0, summary.Total)
	assert.Empty(t, summary.Endpoints)
	assert.Empty(t, summary.Failures)
}

func TestFetchAll_CancelledContext(t *testing.T) {
	src := testutil.NewMockSource()
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, src.URL(), 2)
	summary := f.FetchAll(ctx, []string{"a", "b", "c"})

	assert.Equal(t, 0, summary.Succeeded)
	assert.Len(t, summary.Failures, 3)
	assert.Equal(t, 0, src.GetRequestCount())
}

func TestFetchAll_CancelLetsStartedFetchFinish(t *testing.T) {
	src := testutil.NewMockSource()
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	src.SetHandler("/servers/slow/serverjson", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(150 * time.Millisecond)
		_, _ = w.Write([]byte(testutil.NewServerJSONPage(remotesBlob("Slow", "https://slow/mcp")).Body))
	})
	src.SetServerJSON("queued", testutil.NewServerJSONPage(remotesBlob("Queued", "https://queued/mcp")))

	go func() {
		<-started
		cancel()
	}()

	f := newTestFetcher(t, src.URL(), 1)
	summary := f.FetchAll(ctx, []string{"slow", "queued"})

	require.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, "https://slow/mcp", summary.Endpoints[0].URL)
	assert.Equal(t, []Failure{{Slug: "queued", Reason: context.Canceled.Error()}}, summary.Failures)
	assert.Equal(t, 1, src.GetRequestCount())
}

func TestFetchAll_Idempotent(t *testing.T) {
	src := testutil.NewMockSource()
	defer src.Close()

	slugs := []string{"a", "b", "c", "d"}
	for _, s := range slugs {
		src.SetServerJSON(s, testutil.NewServerJSONPage(remotesBlob(s, "https://"+s+"/1", "https://"+s+"/2")))
	}

	f := newTestFetcher(t, src.URL(), 3)
	first := f.FetchAll(context.Background(), slugs)
	assert.Equal(t, len(slugs), src.GetRequestCount())

	src.Reset()
	second := f.FetchAll(context.Background(), slugs)
	assert.Equal(t, len(slugs), src.GetRequestCount())

	assert.ElementsMatch(t, first.Endpoints, second.Endpoints)
}
