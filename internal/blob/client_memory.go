package blob

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data         []byte
	etag         string
	contentType  string
	lastModified time.Time
}

// MemoryClient is an in-process bucket. ETags are the hex MD5 of the body, as S3 computes
// them for single-part uploads.
type MemoryClient struct {
	mu      sync.RWMutex
	objects map[string]*memoryObject
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{objects: make(map[string]*memoryObject)}
}

func (m *MemoryClient) ListObjects(_ context.Context, prefix string) ([]*BlobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make([]*BlobInfo, 0, len(m.objects))
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, &BlobInfo{
			Key:          key,
			ETag:         obj.etag,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *MemoryClient) GetObject(_ context.Context, key string) (*GetObjectResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
	}
	return &GetObjectResponse{
		Body:         io.NopCloser(bytes.NewReader(obj.data)),
		ETag:         obj.etag,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.lastModified,
	}, nil
}

func (m *MemoryClient) PutObject(ctx context.Context, params *PutObjectParams) (*PutObjectResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, fmt.Errorf("blob: read body %s: %w", params.Key, err)
	}

	sum := md5.Sum(data)
	obj := &memoryObject{
		data:         data,
		etag:         hex.EncodeToString(sum[:]),
		contentType:  params.ContentType,
		lastModified: time.Now().UTC(),
	}

	m.mu.Lock()
	m.objects[params.Key] = obj
	m.mu.Unlock()

	return &PutObjectResponse{
		Key:          params.Key,
		ETag:         obj.etag,
		Size:         int64(len(data)),
		LastModified: obj.lastModified,
	}, nil
}

// DeleteObject is idempotent like S3: deleting a missing key succeeds.
func (m *MemoryClient) DeleteObject(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return true, nil
}

// Len returns the number of stored objects.
func (m *MemoryClient) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ IBlobClient = (*MemoryClient)(nil)
