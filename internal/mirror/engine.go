// Package mirror reconciles a destination bucket prefix against a listing source.
package mirror

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dustin/go-humanize"
	"github.com/openmined/s3mirror/internal/blob"
	"github.com/openmined/s3mirror/internal/listing"
	"github.com/openmined/s3mirror/internal/utils"
)

type Options struct {
	Source listing.ListingSource
	Store  blob.IBlobClient

	// Bucket is only used in log lines
	Bucket string
	Prefix string

	// VerifyDryRun makes dry runs download source files and compare fingerprints, so that
	// "would upload" lists only real changes. The destination is still never written.
	VerifyDryRun bool

	Logger *slog.Logger
}

// Engine performs one-way reconciliation passes. It keeps no state between calls to Sync.
type Engine struct {
	source       listing.ListingSource
	store        blob.IBlobClient
	bucket       string
	prefix       string
	verifyDryRun bool
	logger       *slog.Logger
}

func New(opts *Options) (*Engine, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	if opts.Store == nil {
		return nil, ErrNoStore
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		source:       opts.Source,
		store:        opts.Store,
		bucket:       opts.Bucket,
		prefix:       utils.CleanPrefix(opts.Prefix),
		verifyDryRun: opts.VerifyDryRun,
		logger:       logger,
	}, nil
}

// Sync runs a full pass. It only fails when the source listing is empty or unreachable;
// per-file errors are logged and collected in SyncResult.Failed. A dry run reports the
// outcome of Plan and never writes to the destination.
func (e *Engine) Sync(ctx context.Context, dryRun bool) (*SyncResult, error) {
	tstart := time.Now()
	e.logger.Info("sync start", "source", e.source.String(), "destination", e.destination(), "dry_run", dryRun)

	remote, dest, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var result *SyncResult
	if dryRun {
		result = e.reportPlan(e.plan(ctx, remote, dest), dest)
	} else {
		result = e.apply(ctx, remote, dest)
	}

	result.Duration = time.Since(tstart)
	e.logger.Info("sync completed",
		"uploaded", len(result.Uploaded),
		"deleted", len(result.Deleted),
		"unchanged", len(result.Unchanged),
		"failed", len(result.Failed),
		"bytes", humanize.Bytes(uint64(result.BytesUploaded)),
		"dry_run", dryRun,
		"took", result.Duration,
	)

	return result, nil
}

// Plan computes what a dry run reports without logging per-file decisions. With
// VerifyDryRun set it downloads source files to tell changed from unchanged ones.
func (e *Engine) Plan(ctx context.Context) (*SyncPlan, error) {
	remote, dest, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return e.plan(ctx, remote, dest), nil
}

func (e *Engine) plan(ctx context.Context, remote mapset.Set[string], dest map[string]string) *SyncPlan {
	plan := &SyncPlan{Failed: make(map[string]error)}

	for _, name := range sortedSet(remote) {
		fingerprint, exists := dest[name]
		if !e.verifyDryRun {
			plan.ToUpload = append(plan.ToUpload, name)
			if exists {
				plan.Unverified = append(plan.Unverified, name)
			}
			continue
		}

		data, err := e.source.Fetch(ctx, name)
		if err != nil {
			e.logger.Error("failed to download", "file", name, "error", err, "dry_run", true)
			plan.Failed[name] = fmt.Errorf("download: %w", err)
			continue
		}
		if exists && Fingerprint(data) == fingerprint {
			plan.Unchanged = append(plan.Unchanged, name)
			continue
		}
		plan.ToUpload = append(plan.ToUpload, name)
		plan.Bytes += int64(len(data))
	}

	for _, name := range sortedKeys(dest) {
		if !remote.Contains(name) {
			plan.ToDelete = append(plan.ToDelete, name)
		}
	}
	return plan
}

// reportPlan logs each planned action and turns the plan into a dry-run result.
func (e *Engine) reportPlan(plan *SyncPlan, dest map[string]string) *SyncResult {
	unverified := mapset.NewThreadUnsafeSet(plan.Unverified...)

	for _, name := range plan.ToUpload {
		if unverified.Contains(name) {
			e.logger.Info("would check for changes", "file", name, "dry_run", true)
			continue
		}
		_, exists := dest[name]
		e.logger.Info("would upload", "file", name, "reason", uploadReason(exists), "dry_run", true)
	}
	for _, name := range plan.ToDelete {
		e.logger.Info("would delete", "file", name, "dry_run", true)
	}

	result := newSyncResult(true)
	result.Uploaded = plan.ToUpload
	result.Deleted = plan.ToDelete
	result.Unchanged = plan.Unchanged
	result.Unverified = plan.Unverified
	result.BytesUploaded = plan.Bytes
	for name, err := range plan.Failed {
		result.Failed[name] = err
	}
	return result
}

func (e *Engine) apply(ctx context.Context, remote mapset.Set[string], dest map[string]string) *SyncResult {
	result := newSyncResult(false)

	for _, name := range sortedSet(remote) {
		fingerprint, exists := dest[name]
		e.syncFile(ctx, result, name, fingerprint, exists)
	}

	for _, name := range sortedKeys(dest) {
		if !remote.Contains(name) {
			e.deleteFile(ctx, result, name)
		}
	}
	return result
}

// snapshot fetches both listings. A destination listing failure is logged and treated as an
// empty destination; a source failure or an empty source aborts the run.
func (e *Engine) snapshot(ctx context.Context) (mapset.Set[string], map[string]string, error) {
	remote, err := e.source.List(ctx)
	if err != nil {
		e.logger.Error("failed to list source", "source", e.source.String(), "error", err)
		remote = nil
	}

	dest, destErr := e.destinationFiles(ctx)
	if destErr != nil {
		e.logger.Error("failed to list destination", "destination", e.destination(), "error", destErr)
		dest = map[string]string{}
	}

	if remote == nil || remote.Cardinality() == 0 {
		e.logger.Warn("no files found at source", "source", e.source.String())
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrEmptyListing, err)
		}
		return nil, nil, ErrEmptyListing
	}

	return remote, dest, nil
}

// destinationFiles maps file name to fingerprint for every object under the prefix. Nested
// keys keep their "sub/" part, so they never match a remote name and get deleted.
func (e *Engine) destinationFiles(ctx context.Context) (map[string]string, error) {
	listPrefix := utils.ListPrefix(e.prefix)
	objects, err := e.store.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, err
	}

	files := make(map[string]string, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, listPrefix)
		// directory markers
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		files[name] = blob.NormalizeETag(obj.ETag)
	}

	e.logger.Info("found files at destination", "count", len(files), "destination", e.destination())
	return files, nil
}

func (e *Engine) syncFile(ctx context.Context, result *SyncResult, name, fingerprint string, exists bool) {
	data, err := e.source.Fetch(ctx, name)
	if err != nil {
		e.logger.Error("failed to download", "file", name, "error", err)
		result.Failed[name] = fmt.Errorf("download: %w", err)
		return
	}

	if exists && Fingerprint(data) == fingerprint {
		e.logger.Debug("unchanged", "file", name, "etag", fingerprint)
		result.Unchanged = append(result.Unchanged, name)
		return
	}

	if err := e.upload(ctx, name, data, uploadReason(exists)); err != nil {
		e.logger.Error("failed to upload", "file", name, "error", err)
		result.Failed[name] = fmt.Errorf("upload: %w", err)
		return
	}

	result.Uploaded = append(result.Uploaded, name)
	result.BytesUploaded += int64(len(data))
}

func (e *Engine) upload(ctx context.Context, name string, data []byte, reason string) error {
	key := utils.JoinKey(e.prefix, name)
	resp, err := e.store.PutObject(ctx, &blob.PutObjectParams{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: ContentTypeFor(name),
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return err
	}

	e.logger.Info("uploaded", "file", name, "key", key, "reason", reason, "size", humanize.Bytes(uint64(len(data))), "etag", resp.ETag)
	return nil
}

func (e *Engine) deleteFile(ctx context.Context, result *SyncResult, name string) {
	key := utils.JoinKey(e.prefix, name)
	if _, err := e.store.DeleteObject(ctx, key); err != nil {
		e.logger.Error("failed to delete", "file", name, "key", key, "error", err)
		result.Failed[name] = fmt.Errorf("delete: %w", err)
		return
	}

	e.logger.Info("deleted", "file", name, "key", key)
	result.Deleted = append(result.Deleted, name)
}

func (e *Engine) destination() string {
	return fmt.Sprintf("s3://%s/%s", e.bucket, e.prefix)
}

func uploadReason(exists bool) string {
	if exists {
		return "modified"
	}
	return "new"
}

func sortedSet(s mapset.Set[string]) []string {
	names := s.ToSlice()
	sort.Strings(names)
	return names
}

func sortedKeys(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
