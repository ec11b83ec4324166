package storage

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// MemoryStorage keeps objects in process. Used by tests and local runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// UploadErr, when set, fails every upload.
	UploadErr error
	now       func() time.Time
}

type memObject struct {
	data        []byte
	contentType string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: map[string]memObject{}, now: time.Now}
}

func key(bucket, objectPath string) string { return bucket + "/" + objectPath }

func (m *MemoryStorage) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error {
	if m.UploadErr != nil {
		return m.UploadErr
	}
	cp := append([]byte(nil), data...)
	m.mu.Lock()
	m.objects[key(bucket, objectPath)] = memObject{data: cp, contentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Download(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	m.mu.RLock()
	obj, ok := m.objects[key(bucket, objectPath)]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, objectPath, ErrNotFound)
	}
	return append([]byte(nil), obj.data...), nil
}

func (m *MemoryStorage) SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key(bucket, objectPath)]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%s/%s: %w", bucket, objectPath, ErrNotFound)
	}
	u := url.URL{Scheme: "memory", Host: bucket, Path: "/" + objectPath}
	q := u.Query()
	q.Set("expires", m.now().Add(ttl).UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ContentType returns the stored content type of an object.
func (m *MemoryStorage) ContentType(bucket, objectPath string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key(bucket, objectPath)]
	return obj.contentType, ok
}
