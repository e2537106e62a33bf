// Package storage keeps uploaded media objects on the local disk or in an
// S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Object describes a stored object. Keys always use forward slashes.
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Storage is the object store behind avatar uploads.
type Storage interface {
	// Put stores r under key. size is -1 when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error

	// Open returns the object's content. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// List returns the objects whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)

	// URL returns the address clients fetch key from.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Config selects and configures a storage backend.
type Config struct {
	Driver string      `mapstructure:"driver"` // "local", "s3"
	Local  LocalConfig `mapstructure:"local"`
	S3     S3Config    `mapstructure:"s3"`
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	case "local", "":
		return NewLocalStorage(cfg.Local)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
