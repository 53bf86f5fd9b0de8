package listing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/openmined/s3mirror/internal/blob"
	"github.com/openmined/s3mirror/internal/utils"
)

var ErrNoBlobClient = errors.New("listing: blob client missing")

// BlobSource mirrors from another bucket prefix. Only direct children of the prefix are
// considered, matching what a directory index would expose.
type BlobSource struct {
	client blob.IBlobClient
	prefix string
	label  string
	logger *slog.Logger
}

func NewBlobSource(client blob.IBlobClient, bucket, prefix string, logger *slog.Logger) (*BlobSource, error) {
	if client == nil {
		return nil, ErrNoBlobClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	prefix = utils.CleanPrefix(prefix)
	return &BlobSource{
		client: client,
		prefix: prefix,
		label:  fmt.Sprintf("s3://%s/%s", bucket, prefix),
		logger: logger,
	}, nil
}

func (s *BlobSource) List(ctx context.Context) (mapset.Set[string], error) {
	listPrefix := utils.ListPrefix(s.prefix)
	objects, err := s.client.ListObjects(ctx, listPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing: list %s: %w", s.label, err)
	}

	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		names = append(names, strings.TrimPrefix(obj.Key, listPrefix))
	}
	files := FilterEntries(names)

	s.logger.Info("found files in source bucket", "count", files.Cardinality(), "source", s.label)
	return files, nil
}

func (s *BlobSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, utils.JoinKey(s.prefix, name))
	if err != nil {
		return nil, err
	}
	defer obj.Body.Close()

	return io.ReadAll(obj.Body)
}

func (s *BlobSource) String() string {
	return s.label
}

var _ ListingSource = (*BlobSource)(nil)
