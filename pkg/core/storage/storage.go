// Package storage is the object store for uploaded import files and
// generated report PDFs.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Storage uploads, downloads and signs objects addressed by bucket and path.
type Storage interface {
	Upload(ctx context.Context, bucket, objectPath string, data []byte, contentType string) error
	Download(ctx context.Context, bucket, objectPath string) ([]byte, error)
	SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error)
}

// ContentTypeFor guesses a content type from the object extension.
func ContentTypeFor(objectPath string) string {
	switch strings.ToLower(path.Ext(objectPath)) {
	case ".pdf":
		return "application/pdf"
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".html", ".htm":
		return "text/html"
	case ".json":
		return "application/json"
	case ".md":
		return "text/markdown"
	}
	return "application/octet-stream"
}
