package blob

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient talks to S3-compatible stores (MinIO, Ceph RGW, R2, ...) through minio-go.
type MinioClient struct {
	client *minio.Client
	config *S3BlobConfig
}

func NewMinioClient(ctx context.Context, cfg *S3BlobConfig) (*MinioClient, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("blob: invalid endpoint url %q: %w", cfg.Endpoint, err)
	}

	var creds *credentials.Credentials
	if cfg.HasStaticCredentials() {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
			&credentials.IAM{Client: &http.Client{Timeout: credentialsTimeout}},
		})
	}

	value, err := creds.Get()
	if err != nil {
		return nil, &CredentialsError{Backend: BackendMinio, Err: err}
	}
	if value.AccessKeyID == "" || value.SecretAccessKey == "" {
		return nil, &CredentialsError{Backend: BackendMinio, Err: ErrNoCredentials}
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:        creds,
		Secure:       u.Scheme == "https",
		Region:       cfg.region(),
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("blob: minio client: %w", err)
	}

	return &MinioClient{client: client, config: cfg}, nil
}

func (m *MinioClient) ListObjects(ctx context.Context, prefix string) ([]*BlobInfo, error) {
	var objects []*BlobInfo

	// minio-go pages internally and streams results over the channel
	for obj := range m.client.ListObjects(ctx, m.config.BucketName, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		objects = append(objects, &BlobInfo{
			Key:          obj.Key,
			ETag:         NormalizeETag(obj.ETag),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return objects, nil
}

func (m *MinioClient) GetObject(ctx context.Context, key string) (*GetObjectResponse, error) {
	obj, err := m.client.GetObject(ctx, m.config.BucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.mapError(key, err)
	}

	// GetObject is lazy; Stat forces the request so a missing key surfaces here
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, m.mapError(key, err)
	}

	return &GetObjectResponse{
		Body:         obj,
		ETag:         NormalizeETag(info.ETag),
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

func (m *MinioClient) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	info, err := m.client.PutObject(ctx, m.config.BucketName, params.Key, params.Body, params.Size, minio.PutObjectOptions{
		ContentType: params.ContentType,
	})
	if err != nil {
		return nil, err
	}

	return &PutObjectResponse{
		Key:          params.Key,
		Version:      info.VersionID,
		ETag:         NormalizeETag(info.ETag),
		Size:         info.Size,
		LastModified: time.Now().UTC(),
	}, nil
}

func (m *MinioClient) DeleteObject(ctx context.Context, key string) (bool, error) {
	if err := m.client.RemoveObject(ctx, m.config.BucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MinioClient) mapError(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return err
}

var _ IBlobClient = (*MinioClient)(nil)
