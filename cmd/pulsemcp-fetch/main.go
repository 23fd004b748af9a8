// Command pulsemcp-fetch collects the remote endpoints of a curated list of
// pulsemcp.com servers and writes them as one JSON array.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/mcp-remote-catalog/internal/cli"
	"github.com/Sternrassler/mcp-remote-catalog/pkg/client"
	"github.com/Sternrassler/mcp-remote-catalog/pkg/logging"
	"github.com/Sternrassler/mcp-remote-catalog/pkg/metrics"
	"github.com/Sternrassler/mcp-remote-catalog/pkg/output"
	"github.com/Sternrassler/mcp-remote-catalog/pkg/pulsemcp"
)

const (
	flagConcurrency = "concurrency"
	flagSlugsFile   = "slugs-file"

	jobName = "pulsemcp-fetch"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   jobName,
		Short: "Collect remote MCP endpoints from pulsemcp.com",
		Long: `Fetches the serverjson page of every slug in the curated list (or in
--slugs-file), extracts the remote endpoints embedded in each page and writes
them to a single JSON array. Slugs that fail are listed on stderr.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	cli.AddCommonFlags(cmd, cli.Defaults{
		Output:    "pulsemcp_servers.json",
		BaseURL:   pulsemcp.DefaultBaseURL,
		UserAgent: pulsemcp.DefaultUserAgent,
		Timeout:   pulsemcp.DefaultTimeout,
	})
	cmd.Flags().IntP(flagConcurrency, "c", pulsemcp.DefaultMaxConcurrency, "maximum number of concurrent requests")
	cmd.Flags().String(flagSlugsFile, "", "YAML file with a slugs list (default: embedded list)")

	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	v, err := cli.NewViper(cmd)
	if err != nil {
		return err
	}
	settings, err := cli.Load(v)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	settings.SetupLogging(stderr)
	logger, _ := logging.NewRunLogger("pulsemcp")

	slugs := pulsemcp.DefaultSlugs()
	if path := v.GetString(flagSlugsFile); path != "" {
		if slugs, err = pulsemcp.LoadSlugs(path); err != nil {
			return err
		}
	}

	httpClient, err := client.New(client.Config{
		UserAgent: settings.UserAgent,
		Timeout:   settings.Timeout,
		Source:    "pulsemcp",
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	fetcher, err := pulsemcp.NewFetcher(httpClient, pulsemcp.Config{
		BaseURL:        settings.BaseURL,
		MaxConcurrency: v.GetInt(flagConcurrency),
	})
	if err != nil {
		return err
	}
	fetcher = fetcher.WithLogger(logger)

	ctx := cmd.Context()
	summary := fetcher.FetchAll(ctx, slugs)
	if err := ctx.Err(); err != nil {
		logger.Error().
			Err(err).
			Int("succeeded", summary.Succeeded).
			Int("total", summary.Total).
			Msg("Fetch interrupted, no output written")
		return fmt.Errorf("interrupted: %w", err)
	}

	if err := output.WriteJSON(settings.Output, summary.Endpoints); err != nil {
		return err
	}
	logger.Info().
		Str("path", settings.Output).
		Int("endpoints", len(summary.Endpoints)).
		Msg("Output written")

	printSummary(stderr, summary, settings.Output)

	if err := metrics.Push(ctx, settings.PushgatewayURL, jobName, metrics.Gatherer); err != nil {
		logger.Warn().Err(err).Msg("Metrics push failed")
	}
	return nil
}

func printSummary(w io.Writer, s *pulsemcp.Summary, path string) {
	fmt.Fprintf(w, "\nTotal: %d endpoints from %d/%d slugs -> %s\n",
		len(s.Endpoints), s.Succeeded, s.Total, path)

	failures := s.SortedFailures()
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Failed (%d):\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s: %s\n", f.Slug, f.Reason)
	}
}
