// Package httpsource fetches listing pages and files from the HTTP source being mirrored.
package httpsource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/imroc/req/v3"
	"github.com/openmined/s3mirror/internal/version"
)

const (
	DefaultListingTimeout  = 30 * time.Second
	DefaultDownloadTimeout = 60 * time.Second
)

// DefaultUserAgent looks like a browser. Some public data servers reject bare library agents.
var DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 " + version.UserAgentSuffix()

type Options struct {
	ListingTimeout  time.Duration
	DownloadTimeout time.Duration
	UserAgent       string
	Logger          *slog.Logger
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpsource: GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Client issues blocking GETs. Listing pages and file downloads get separate timeouts.
type Client struct {
	client          *req.Client
	listingTimeout  time.Duration
	downloadTimeout time.Duration
	logger          *slog.Logger
}

func New(opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}

	listingTimeout := opts.ListingTimeout
	if listingTimeout <= 0 {
		listingTimeout = DefaultListingTimeout
	}
	downloadTimeout := opts.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = DefaultDownloadTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := req.C().
		SetUserAgent(userAgent).
		SetCommonRetryCount(0).
		SetTimeout(max(listingTimeout, downloadTimeout))

	return &Client{
		client:          client,
		listingTimeout:  listingTimeout,
		downloadTimeout: downloadTimeout,
		logger:          logger,
	}
}

// GetListing fetches a directory index or manifest document.
func (c *Client) GetListing(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, c.listingTimeout)
}

// Download fetches a single file body.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, c.downloadTimeout)
}

func (c *Client) get(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tstart := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("httpsource: GET %s: %w", url, err)
	}

	if !resp.IsSuccessState() {
		return nil, &StatusError{URL: url, StatusCode: resp.GetStatusCode()}
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("httpsource: read %s: %w", url, err)
	}

	c.logger.Debug("http get", "url", url, "status", resp.GetStatusCode(), "size", humanize.Bytes(uint64(len(body))), "took", time.Since(tstart))
	return body, nil
}
