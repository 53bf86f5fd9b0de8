package listing

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/goccy/go-json"
)

// manifestDocument is the object form of a manifest: {"files": ["a.txt", "b.json"]}
type manifestDocument struct {
	Files []string `json:"files"`
}

// ManifestSource reads a JSON index file instead of scraping HTML. Files are resolved
// relative to the manifest URL.
type ManifestSource struct {
	manifestURL *url.URL
	client      Getter
	logger      *slog.Logger
}

func NewManifestSource(manifestURL string, client Getter, logger *slog.Logger) (*ManifestSource, error) {
	if manifestURL == "" {
		return nil, ErrNoBaseURL
	}
	if client == nil {
		return nil, ErrNoClient
	}
	u, err := url.Parse(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("listing: invalid manifest url %q: %w", manifestURL, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestSource{manifestURL: u, client: client, logger: logger}, nil
}

// ParseManifest accepts either a bare JSON array of names or {"files": [...]}.
func ParseManifest(body []byte) (mapset.Set[string], error) {
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		var doc manifestDocument
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("listing: parse manifest: %w", err)
		}
		names = doc.Files
	}
	return FilterEntries(names), nil
}

func (s *ManifestSource) List(ctx context.Context) (mapset.Set[string], error) {
	body, err := s.client.GetListing(ctx, s.manifestURL.String())
	if err != nil {
		return nil, fmt.Errorf("listing: fetch manifest: %w", err)
	}

	files, err := ParseManifest(body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("found files in manifest", "count", files.Cardinality(), "url", s.manifestURL.String())
	return files, nil
}

func (s *ManifestSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	return s.client.Download(ctx, s.fileURL(name))
}

func (s *ManifestSource) fileURL(name string) string {
	return s.manifestURL.ResolveReference(&url.URL{Path: name}).String()
}

func (s *ManifestSource) String() string {
	return s.manifestURL.String()
}

var _ ListingSource = (*ManifestSource)(nil)
