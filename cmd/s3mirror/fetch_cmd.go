package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/openmined/s3mirror/internal/httpsource"
	"github.com/openmined/s3mirror/internal/snapshot"
	"github.com/spf13/cobra"
)

func (a *app) fetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one JSON document and store it under a fixed key",
		Example: `  s3mirror fetch --url https://datausa.io/api/data?drilldowns=Nation&measures=Population --bucket my-bucket
  s3mirror fetch --url https://example.org/report.json --bucket my-bucket --key reports/latest.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.closeLogs()
			return a.runFetch(cmd)
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("url", "u", "", "url of the document to fetch")
	cmd.Flags().StringP("key", "k", snapshot.DefaultKey, "destination object key")
	addDestinationFlags(cmd)
	cmd.Flags().Bool("allow-non-json", false, "store the response even if it is not valid JSON")
	cmd.Flags().Duration("listing-timeout", httpsource.DefaultListingTimeout, "request timeout")
	cmd.Flags().String("user-agent", "", "User-Agent sent to the server")

	return cmd
}

func (a *app) runFetch(cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.ValidateFetch(); err != nil {
		return err
	}
	cmd.SilenceUsage = true

	ctx := cmd.Context()

	store, err := a.openStore(ctx, &cfg.Blob)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	job := &snapshot.Job{
		Fetcher:      a.newHTTPClient(cfg),
		Store:        store,
		Logger:       a.logger.With("component", "snapshot"),
		AllowNonJSON: cfg.Fetch.AllowNonJSON,
	}

	key := cfg.Fetch.Key
	if key == "" {
		key = snapshot.DefaultKey
	}

	result, err := job.Run(ctx, cfg.Fetch.URL, key, cfg.DryRun)
	if err != nil {
		return err
	}

	writeLine(cmd.OutOrStdout(), "%sstored %s (%s)", dryRunTag(result.DryRun), result.Key, humanize.Bytes(uint64(result.Size)))
	return nil
}
