package httpsource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Download(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		_, _ = w.Write([]byte("series_id\tyear\tvalue\n"))
	}))
	defer srv.Close()

	c := New(&Options{UserAgent: "s3mirror-test"})
	body, err := c.Download(context.Background(), srv.URL+"/pr.data.0.Current")
	require.NoError(t, err)
	assert.Equal(t, "series_id\tyear\tvalue\n", string(body))
	assert.Equal(t, "s3mirror-test", gotUA)
}

func TestClient_DefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
	}))
	defer srv.Close()

	_, err := New(nil).GetListing(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotUA, "Mozilla/5.0"))
	assert.Contains(t, gotUA, "s3mirror/")
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(nil).GetListing(context.Background(), srv.URL)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Equal(t, srv.URL, statusErr.URL)
}

func TestClient_DownloadTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := New(&Options{ListingTimeout: time.Second, DownloadTimeout: 50 * time.Millisecond})

	tstart := time.Now()
	_, err := c.Download(context.Background(), srv.URL+"/slow.bin")
	assert.Error(t, err)
	assert.Less(t, time.Since(tstart), time.Second)
}

func TestNew_Defaults(t *testing.T) {
	c := New(&Options{})
	assert.Equal(t, DefaultListingTimeout, c.listingTimeout)
	assert.Equal(t, DefaultDownloadTimeout, c.downloadTimeout)
	assert.NotNil(t, c.logger)
}
