package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/openmined/s3mirror/internal/config"
	"github.com/openmined/s3mirror/internal/httpsource"
	"github.com/openmined/s3mirror/internal/listing"
	"github.com/openmined/s3mirror/internal/mirror"
	"github.com/spf13/cobra"
)

func (a *app) syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the source listing into the destination bucket prefix",
		Long: `Mirror the files of an HTTP directory listing into a bucket prefix.

New and modified files are uploaded, files no longer listed at the source are deleted
from the prefix, unchanged files are left alone. Each run is a full pass; schedule it
with cron or a systemd timer for periodic mirroring.`,
		Example: `  s3mirror sync --source https://download.bls.gov/pub/time.series/pr/ --bucket my-bucket --prefix bls-data
  s3mirror sync --source https://example.org/files/ --bucket my-bucket --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.closeLogs()
			return a.runSync(cmd)
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("source", "s", "", "url of the directory listing (or manifest) to mirror")
	cmd.Flags().String("source-type", config.SourceHTML, "source kind: html, manifest, bucket")
	cmd.Flags().String("source-bucket", "", "source bucket for --source-type=bucket")
	cmd.Flags().String("source-prefix", "", "source prefix for --source-type=bucket")
	cmd.Flags().StringP("prefix", "p", "", "destination key prefix")
	addDestinationFlags(cmd)
	cmd.Flags().Bool("verify-dry-run", false, "in dry-run mode, download files to report only real changes")
	cmd.Flags().Duration("listing-timeout", httpsource.DefaultListingTimeout, "timeout for fetching the listing page")
	cmd.Flags().Duration("download-timeout", httpsource.DefaultDownloadTimeout, "timeout for downloading each file")
	cmd.Flags().String("user-agent", "", "User-Agent sent to the source server")

	return cmd
}

func (a *app) runSync(cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.ValidateSync(); err != nil {
		return err
	}
	cmd.SilenceUsage = true

	release, err := acquireLock(cfg.LockFile, a.logger)
	if err != nil {
		return err
	}
	defer release()

	ctx := cmd.Context()

	store, err := a.openStore(ctx, &cfg.Blob)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	source, err := a.newListingSource(ctx, cfg)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	engine, err := mirror.New(&mirror.Options{
		Source:       source,
		Store:        store,
		Bucket:       cfg.Blob.BucketName,
		Prefix:       cfg.Prefix,
		VerifyDryRun: cfg.VerifyDryRun,
		Logger:       a.logger.With("component", "mirror"),
	})
	if err != nil {
		return err
	}

	result, err := engine.Sync(ctx, cfg.DryRun)
	if err != nil {
		return err
	}

	for _, name := range result.FailedFiles() {
		a.logger.Warn("file not synced", "file", name, "error", result.Failed[name])
	}

	writeLine(cmd.OutOrStdout(), "%suploaded=%d deleted=%d unchanged=%d failed=%d",
		dryRunTag(result.DryRun),
		len(result.Uploaded), len(result.Deleted), len(result.Unchanged), len(result.Failed))

	if !result.Changed() && len(result.Failed) == 0 {
		writeLine(cmd.OutOrStdout(), "destination is up to date")
	}
	if len(result.Unverified) > 0 {
		writeLine(cmd.OutOrStdout(), "unverified: %s", strings.Join(result.Unverified, ", "))
	}

	return nil
}

func (a *app) newListingSource(ctx context.Context, cfg *config.Config) (listing.ListingSource, error) {
	logger := a.logger.With("component", "listing")

	switch cfg.Source.Type {
	case config.SourceBucket:
		srcCfg := cfg.Blob
		srcCfg.BucketName = cfg.Source.Bucket
		client, err := a.openStore(ctx, &srcCfg)
		if err != nil {
			return nil, err
		}
		return listing.NewBlobSource(client, cfg.Source.Bucket, cfg.Source.Prefix, logger)
	case config.SourceManifest:
		return listing.NewManifestSource(cfg.Source.URL, a.newHTTPClient(cfg), logger)
	default:
		return listing.NewHTMLIndexSource(cfg.Source.URL, a.newHTTPClient(cfg), logger)
	}
}

func (a *app) newHTTPClient(cfg *config.Config) *httpsource.Client {
	return httpsource.New(&httpsource.Options{
		ListingTimeout:  cfg.Source.ListingTimeout,
		DownloadTimeout: cfg.Source.DownloadTimeout,
		UserAgent:       cfg.Source.UserAgent,
		Logger:          a.logger.With("component", "http"),
	})
}

func dryRunTag(dryRun bool) string {
	if dryRun {
		return "[dry-run] "
	}
	return ""
}
