package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrObjectNotFound = errors.New("blob: object not found")
	ErrNoCredentials  = errors.New("blob: no credentials resolved")
)

// IBlobClient is the narrow object store contract used by the mirror.
type IBlobClient interface {
	// ListObjects returns every object whose key starts with prefix, following pagination.
	ListObjects(ctx context.Context, prefix string) ([]*BlobInfo, error)

	// GetObject opens an object for reading. Missing keys yield ErrObjectNotFound.
	GetObject(ctx context.Context, key string) (*GetObjectResponse, error)

	// PutObject stores a single-part object
	PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error)

	// DeleteObject removes an object, returns true if successful
	DeleteObject(ctx context.Context, key string) (bool, error)
}

// CredentialsError is returned when a backend cannot resolve credentials at construction.
type CredentialsError struct {
	Backend string
	Err     error
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("blob: %s credentials: %v", e.Backend, e.Err)
}

func (e *CredentialsError) Unwrap() error { return e.Err }

func (e *CredentialsError) Is(target error) bool { return target == ErrNoCredentials }

// ===================================================================================================

type GetObjectResponse struct {
	Body         io.ReadCloser
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

type PutObjectParams struct {
	Key         string
	Size        int64
	ContentType string
	Body        io.Reader
}

type PutObjectResponse struct {
	Key          string
	Version      string
	ETag         string
	Size         int64
	LastModified time.Time
}

type BlobInfo struct {
	Key          string    `json:"key"`
	ETag         string    `json:"etag"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// NormalizeETag strips the quotes S3 wraps around entity tags.
func NormalizeETag(etag string) string {
	return strings.ReplaceAll(etag, "\"", "")
}
