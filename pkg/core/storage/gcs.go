package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage stores objects in Google Cloud Storage buckets.
type GCSStorage struct {
	client *storage.Client
}

// NewGCSStorage builds a client from application default credentials plus
// any extra options.
func NewGCSStorage(ctx context.Context, opts ...option.ClientOption) (*GCSStorage, error) {
	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStorage{client: client}, nil
}

func (g *GCSStorage) Close() error { return g.client.Close() }

func (g *GCSStorage) Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(bucket).Object(objectPath).NewWriter(ctx)
	if contentType == "" {
		contentType = ContentTypeFor(objectPath)
	}
	w.ContentType = contentType
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", bucket, objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", bucket, objectPath, err)
	}
	return nil
}

func (g *GCSStorage) Download(ctx context.Context, bucket, objectPath string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := g.client.Bucket(bucket).Object(objectPath).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("gs://%s/%s: %w", bucket, objectPath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, objectPath, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCSStorage) SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	url, err := g.client.Bucket(bucket).SignedURL(objectPath, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("sign gs://%s/%s: %w", bucket, objectPath, err)
	}
	return url, nil
}
