package listing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openmined/s3mirror/internal/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGetter serves canned bodies by URL and records requests.
type fakeGetter struct {
	bodies   map[string]string
	listed   []string
	download []string
}

func (f *fakeGetter) GetListing(_ context.Context, url string) ([]byte, error) {
	f.listed = append(f.listed, url)
	return f.lookup(url)
}

func (f *fakeGetter) Download(_ context.Context, url string) ([]byte, error) {
	f.download = append(f.download, url)
	return f.lookup(url)
}

func (f *fakeGetter) lookup(url string) ([]byte, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("404 " + url)
	}
	return []byte(body), nil
}

func TestHTMLIndexSource(t *testing.T) {
	getter := &fakeGetter{bodies: map[string]string{
		"http://src/pub/":       `<a href="../">../</a><a href="a.txt">a.txt</a><a href="b.json">b.json</a>`,
		"http://src/pub/a.txt":  "alpha",
		"http://src/pub/b.json": "{}",
	}}

	src, err := NewHTMLIndexSource("http://src/pub/", getter, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://src/pub", src.String())

	files, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.json"}, sorted(files))
	assert.Equal(t, []string{"http://src/pub/"}, getter.listed)

	body, err := src.Fetch(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(body))
	assert.Equal(t, []string{"http://src/pub/a.txt"}, getter.download)
}

func TestHTMLIndexSource_EscapesFileNames(t *testing.T) {
	index := `<a href="100%25.txt">100%.txt</a><a href="a%231.txt">a#1.txt</a><a href="ok.txt">ok.txt</a>`
	getter := &fakeGetter{bodies: map[string]string{
		"http://src/pub/":           index,
		"http://src/pub/100%25.txt": "hundred",
		"http://src/pub/a%231.txt":  "hash",
		"http://src/pub/ok.txt":     "ok",
	}}

	src, err := NewHTMLIndexSource("http://src/pub/", getter, nil)
	require.NoError(t, err)

	files, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"100%.txt", "a#1.txt", "ok.txt"}, sorted(files))

	for name, want := range map[string]string{"100%.txt": "hundred", "a#1.txt": "hash", "ok.txt": "ok"} {
		body, err := src.Fetch(context.Background(), name)
		require.NoError(t, err, name)
		assert.Equal(t, want, string(body), name)
	}
}

func TestHTMLIndexSource_FetchError(t *testing.T) {
	src, err := NewHTMLIndexSource("http://src/pub", &fakeGetter{}, nil)
	require.NoError(t, err)

	_, err = src.List(context.Background())
	assert.Error(t, err)
}

func TestNewHTMLIndexSource_Validation(t *testing.T) {
	_, err := NewHTMLIndexSource("", &fakeGetter{}, nil)
	assert.ErrorIs(t, err, ErrNoBaseURL)

	_, err = NewHTMLIndexSource("http://src", nil, nil)
	assert.ErrorIs(t, err, ErrNoClient)
}

func TestParseManifest(t *testing.T) {
	files, err := ParseManifest([]byte(`["a.txt", "../escape.txt", "dir/", "b.json"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.json"}, sorted(files))

	files, err = ParseManifest([]byte(`{"files": ["c.csv", "README"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"c.csv"}, sorted(files))

	_, err = ParseManifest([]byte(`<html>`))
	assert.Error(t, err)
}

func TestManifestSource_ResolvesRelativeToManifest(t *testing.T) {
	getter := &fakeGetter{bodies: map[string]string{
		"http://src/exports/index.json":    `{"files": ["2026 q1.csv"]}`,
		"http://src/exports/2026%20q1.csv": "q1",
	}}

	src, err := NewManifestSource("http://src/exports/index.json", getter, nil)
	require.NoError(t, err)

	files, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2026 q1.csv"}, sorted(files))

	body, err := src.Fetch(context.Background(), "2026 q1.csv")
	require.NoError(t, err)
	assert.Equal(t, "q1", string(body))
}

func TestBlobSource(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryClient()
	for key, body := range map[string]string{
		"incoming/a.txt":        "alpha",
		"incoming/b.json":       "{}",
		"incoming/":             "",
		"incoming/nested/c.txt": "nested",
		"elsewhere/d.txt":       "d",
	} {
		_, err := store.PutObject(ctx, &blob.PutObjectParams{Key: key, Size: int64(len(body)), Body: strings.NewReader(body)})
		require.NoError(t, err)
	}

	src, err := NewBlobSource(store, "staging", "/incoming/", nil)
	require.NoError(t, err)
	assert.Equal(t, "s3://staging/incoming", src.String())

	files, err := src.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.json"}, sorted(files))

	body, err := src.Fetch(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(body))

	_, err = src.Fetch(ctx, "missing.txt")
	assert.ErrorIs(t, err, blob.ErrObjectNotFound)

	_, err = NewBlobSource(nil, "staging", "", nil)
	assert.ErrorIs(t, err, ErrNoBlobClient)
}
