// Package storage persists product images, on S3 with a local disk fallback.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when no object exists under the requested key.
var ErrNotFound = errors.New("storage: object not found")

// Object is an open stored image.
type Object struct {
	Body        io.ReadCloser
	ContentType string
}

// ImageStore stores and retrieves images by key.
type ImageStore interface {
	// Put writes body under key.
	Put(ctx context.Context, key string, body []byte, contentType string) error

	// Open returns the object stored under key. The caller closes Body.
	Open(ctx context.Context, key string) (*Object, error)
}
