// Package snapshot implements the one-shot fetch-and-store job: GET a JSON API response
// and write it to a single object key.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/openmined/s3mirror/internal/blob"
)

const (
	DefaultKey  = "population_data/data.json"
	contentType = "application/json"
)

var (
	ErrNoURL   = errors.New("snapshot: url missing")
	ErrNoKey   = errors.New("snapshot: object key missing")
	ErrNotJSON = errors.New("snapshot: response is not valid json")
)

// Fetcher is satisfied by *httpsource.Client.
type Fetcher interface {
	GetListing(ctx context.Context, url string) ([]byte, error)
}

type Job struct {
	Fetcher Fetcher
	Store   blob.IBlobClient
	Logger  *slog.Logger

	// AllowNonJSON skips the JSON validity check on the response body.
	AllowNonJSON bool
}

type Result struct {
	Key    string
	Size   int64
	ETag   string
	DryRun bool
}

func (j *Job) Run(ctx context.Context, url, key string, dryRun bool) (*Result, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	if key == "" {
		return nil, ErrNoKey
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tstart := time.Now()
	body, err := j.Fetcher.GetListing(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("snapshot: fetch: %w", err)
	}

	if !j.AllowNonJSON && !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s", ErrNotJSON, url)
	}

	result := &Result{Key: key, Size: int64(len(body)), DryRun: dryRun}
	if dryRun {
		logger.Info("would store snapshot", "url", url, "key", key, "size", humanize.Bytes(uint64(len(body))), "dry_run", true)
		return result, nil
	}

	resp, err := j.Store.PutObject(ctx, &blob.PutObjectParams{
		Key:         key,
		Size:        int64(len(body)),
		ContentType: contentType,
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: store %s: %w", key, err)
	}

	result.ETag = resp.ETag
	logger.Info("stored snapshot", "url", url, "key", key, "size", humanize.Bytes(uint64(len(body))), "etag", resp.ETag, "took", time.Since(tstart))
	return result, nil
}
