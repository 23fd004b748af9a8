// Command registry-fetch walks the MCP registry server list and writes every
// remote endpoint it finds as one JSON array.
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
	"github.com/Sternrassler/mcp-remote-catalog/pkg/registry"
)

const jobName = "registry-fetch"

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
		Short: "Collect remote MCP endpoints from the MCP registry",
		Long: `Walks the paginated server list of the MCP registry and writes one record
per remote endpoint, deduplicated by (name, url). A failed request ends the
walk and the records collected so far are written. A page that is not JSON
aborts the run without writing any output.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}

	cli.AddCommonFlags(cmd, cli.Defaults{
		Output:    "registry_servers.json",
		BaseURL:   registry.DefaultBaseURL,
		UserAgent: registry.DefaultUserAgent,
		Timeout:   registry.DefaultTimeout,
	})

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
	logger, _ := logging.NewRunLogger("registry")

	httpClient, err := client.New(client.Config{
		UserAgent: settings.UserAgent,
		Accept:    "application/json",
		Timeout:   settings.Timeout,
		Source:    "registry",
	})
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	walker, err := registry.NewWalker(httpClient, registry.Config{BaseURL: settings.BaseURL})
	if err != nil {
		return err
	}
	walker = walker.WithLogger(logger)

	ctx := cmd.Context()
	res, err := walker.Walk(ctx)
	if err != nil {
		logger.Error().
			Err(err).
			Int("pages", res.Pages).
			Msg("Registry walk aborted, no output written")
		return err
	}

	if res.StopReason == registry.StopTransportError {
		logger.Warn().
			Err(res.TransportErr).
			Int("records", len(res.Records)).
			Msg("Walk ended on a failed request, writing partial result")
	}

	if err := output.WriteJSON(settings.Output, res.Records); err != nil {
		return err
	}
	logger.Info().
		Str("path", settings.Output).
		Int("records", len(res.Records)).
		Int("pages", res.Pages).
		Int("duplicates", res.Duplicates).
		Str("stop_reason", string(res.StopReason)).
		Dur("duration", res.Duration).
		Msg("Output written")

	printSummary(stderr, res, settings.Output)

	if err := metrics.Push(ctx, settings.PushgatewayURL, jobName, metrics.Gatherer); err != nil {
		logger.Warn().Err(err).Msg("Metrics push failed")
	}
	return nil
}

func printSummary(w io.Writer, res *registry.Result, path string) {
	fmt.Fprintf(w, "\nTotal: %d remote endpoints from %d pages -> %s\n",
		len(res.Records), res.Pages, path)
}
