package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openmined/s3mirror/internal/blob"
)

// runApp executes the CLI against store and returns everything written to stdout and stderr.
func runApp(t *testing.T, store blob.IBlobClient, args ...string) (string, error) {
	t.Helper()

	a := newApp()
	a.openStore = func(ctx context.Context, cfg *blob.S3BlobConfig) (blob.IBlobClient, error) {
		return store, nil
	}

	root := a.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--lock-file", filepath.Join(t.TempDir(), "s3mirror.lock")))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// newIndexServer serves an autoindex page at /pub/ linking to files, and the files themselves.
func newIndexServer(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pub/" {
			var page strings.Builder
			page.WriteString(`<html><body><h1>Index of /pub/</h1><hr><pre><a href="../">../</a>` + "\n")
			for name := range files {
				page.WriteString(`<a href="` + name + `">` + name + "</a>\n")
			}
			page.WriteString("</pre><hr></body></html>")
			_, _ = w.Write([]byte(page.String()))
			return
		}

		body, ok := files[strings.TrimPrefix(r.URL.Path, "/pub/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func putString(t *testing.T, store blob.IBlobClient, key, body string) {
	t.Helper()
	_, err := store.PutObject(context.Background(), &blob.PutObjectParams{
		Key:  key,
		Size: int64(len(body)),
		Body: strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("put %s: %v", key, err)
	}
}
