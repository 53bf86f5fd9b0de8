package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/s3mirror/internal/utils"
)

// HTMLIndexSource scrapes an HTTP autoindex page.
type HTMLIndexSource struct {
	indexURL string
	baseURL  string
	client   Getter
	logger   *slog.Logger
}

func NewHTMLIndexSource(baseURL string, client Getter, logger *slog.Logger) (*HTMLIndexSource, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if client == nil {
		return nil, ErrNoClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTMLIndexSource{
		indexURL: baseURL,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		logger:   logger,
	}, nil
}

func (s *HTMLIndexSource) List(ctx context.Context) (mapset.Set[string], error) {
	body, err := s.client.GetListing(ctx, s.indexURL)
	if err != nil {
		return nil, fmt.Errorf("listing: fetch index: %w", err)
	}

	files, err := ParseAutoindex(body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("found files at http source", "count", files.Cardinality(), "url", s.baseURL)
	return files, nil
}

func (s *HTMLIndexSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	return s.client.Download(ctx, utils.JoinURL(s.baseURL, name))
}

func (s *HTMLIndexSource) String() string {
	return s.baseURL
}

var _ ListingSource = (*HTMLIndexSource)(nil)
