// Package blob wraps the destination object stores the mirror can write to.
package blob

import (
	"context"
	"fmt"
)

// New validates cfg and builds the configured backend. Credential resolution happens here so
// that a missing key pair or role surfaces before any bucket request.
func New(ctx context.Context, cfg *S3BlobConfig) (IBlobClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.backend() {
	case BackendS3:
		return NewS3Client(ctx, cfg)
	case BackendMinio:
		return NewMinioClient(ctx, cfg)
	case BackendMemory:
		return NewMemoryClient(), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Backend)
}
