// Package storage holds the object store used for provider photos.
// Only server-side services talk to it; clients only ever see signed URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/viprasethu/backend/internal/config"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the minimal surface the photo pipeline needs.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// New builds the store selected by cfg.Driver.
func New(ctx context.Context, cfg *config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "minio", "s3":
		return NewMinioStore(ctx, cfg)
	case "memory", "":
		return NewMemoryStore("memory://" + cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
