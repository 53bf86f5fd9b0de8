package main

import (
	"context"
	"io"
	"testing"

	"github.com/openmined/s3mirror/internal/blob"
	"github.com/openmined/s3mirror/internal/config"
	"github.com/openmined/s3mirror/internal/mirror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncCommand_FlagsAndDefaults(t *testing.T) {
	cmd := newApp().syncCmd()

	source := cmd.Flags().Lookup("source")
	require.NotNil(t, source)
	require.Equal(t, "s", source.Shorthand)
	require.Equal(t, "", source.DefValue)

	sourceType := cmd.Flags().Lookup("source-type")
	require.NotNil(t, sourceType)
	require.Equal(t, config.SourceHTML, sourceType.DefValue)

	dryRun := cmd.Flags().Lookup("dry-run")
	require.NotNil(t, dryRun)
	require.Equal(t, "n", dryRun.Shorthand)
	require.Equal(t, "false", dryRun.DefValue)

	region := cmd.Flags().Lookup("region")
	require.NotNil(t, region)
	require.Equal(t, blob.DefaultRegion, region.DefValue)

	listingTimeout := cmd.Flags().Lookup("listing-timeout")
	require.NotNil(t, listingTimeout)
	require.Equal(t, "30s", listingTimeout.DefValue)

	downloadTimeout := cmd.Flags().Lookup("download-timeout")
	require.NotNil(t, downloadTimeout)
	require.Equal(t, "1m0s", downloadTimeout.DefValue)
}

func TestSyncCommand_MirrorsListing(t *testing.T) {
	srv := newIndexServer(t, map[string]string{
		"pr.series":         "series",
		"pr.data.0.Current": "current",
	})

	store := blob.NewMemoryClient()
	putString(t, store, "bls/pr.series", "series")
	putString(t, store, "bls/pr.old", "stale")

	out, err := runApp(t, store, "sync", "--source", srv.URL+"/pub/", "--bucket", "test-bucket", "--prefix", "bls")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded=1 deleted=1 unchanged=1 failed=0")

	obj, err := store.GetObject(context.Background(), "bls/pr.data.0.Current")
	require.NoError(t, err)
	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "current", string(body))

	_, err = store.GetObject(context.Background(), "bls/pr.old")
	assert.ErrorIs(t, err, blob.ErrObjectNotFound)
	assert.Equal(t, 2, store.Len())
	assert.NotContains(t, out, "up to date")

	out, err = runApp(t, store, "sync", "--source", srv.URL+"/pub/", "--bucket", "test-bucket", "--prefix", "bls")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded=0 deleted=0 unchanged=2 failed=0")
	assert.Contains(t, out, "destination is up to date")
}

func TestSyncCommand_DryRunLeavesBucketAlone(t *testing.T) {
	srv := newIndexServer(t, map[string]string{"a.txt": "A"})

	store := blob.NewMemoryClient()
	putString(t, store, "data/gone.txt", "old")

	out, err := runApp(t, store, "sync", "--source", srv.URL+"/pub/", "--bucket", "test-bucket", "--prefix", "data", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "[dry-run] uploaded=1 deleted=1 unchanged=0 failed=0")
	assert.Contains(t, out, "would upload")
	assert.Contains(t, out, "would delete")

	assert.Equal(t, 1, store.Len())
	_, err = store.GetObject(context.Background(), "data/gone.txt")
	require.NoError(t, err)
}

func TestSyncCommand_EmptyListingFails(t *testing.T) {
	srv := newIndexServer(t, map[string]string{})

	store := blob.NewMemoryClient()
	putString(t, store, "data/keep.txt", "keep")

	_, err := runApp(t, store, "sync", "--source", srv.URL+"/pub/", "--bucket", "test-bucket", "--prefix", "data")
	require.ErrorIs(t, err, mirror.ErrEmptyListing)
	assert.Equal(t, 1, store.Len())
}

func TestSyncCommand_Validation(t *testing.T) {
	store := blob.NewMemoryClient()

	_, err := runApp(t, store, "sync", "--source", "https://example.org/pub/")
	require.ErrorIs(t, err, config.ErrNoBucket)

	_, err = runApp(t, store, "sync", "--bucket", "b")
	require.ErrorIs(t, err, config.ErrNoSourceURL)

	_, err = runApp(t, store, "sync", "--bucket", "b", "--source", "ftp://example.org/pub/")
	require.ErrorIs(t, err, config.ErrInvalidSourceURL)

	_, err = runApp(t, store, "sync", "--bucket", "b", "--source", "https://example.org/", "--access-key", "AKIAEXAMPLE")
	require.ErrorIs(t, err, config.ErrPartialCredentials)

	_, err = runApp(t, store, "sync", "--bucket", "b", "--source-type", "bucket")
	require.ErrorIs(t, err, config.ErrNoSourceBucket)
}

func TestSyncCommand_EnvOverridesDefaults(t *testing.T) {
	srv := newIndexServer(t, map[string]string{"a.txt": "A"})
	t.Setenv("S3MIRROR_SOURCE", srv.URL+"/pub/")
	t.Setenv("S3MIRROR_BUCKET", "env-bucket")
	t.Setenv("S3MIRROR_PREFIX", "from-env")

	store := blob.NewMemoryClient()
	out, err := runApp(t, store, "sync")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded=1")

	_, err = store.GetObject(context.Background(), "from-env/a.txt")
	require.NoError(t, err)
}

func TestSyncCommand_BucketSource(t *testing.T) {
	store := blob.NewMemoryClient()
	putString(t, store, "upstream/a.txt", "A")
	putString(t, store, "upstream/b.txt", "B")

	out, err := runApp(t, store, "sync", "--source-type", "bucket", "--source-bucket", "src", "--source-prefix", "upstream",
		"--bucket", "dst", "--prefix", "mirror")
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded=2 deleted=0 unchanged=0 failed=0")

	_, err = store.GetObject(context.Background(), "mirror/b.txt")
	require.NoError(t, err)
}
