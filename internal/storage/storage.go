package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Package storage holds released app bundles in an S3-compatible object store.
// Implementations stream content and never touch local disk.

// ErrDisabled is returned by every operation of the Noop store.
var ErrDisabled = errors.New("bundle storage is disabled")

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known, or -1 when unknown.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage is an S3-compatible object storage client.
type Storage interface {
	// Put uploads an object under the given key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key.
	Delete(ctx context.Context, key string) error
	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// BundleKey is the object key of the bundle released from a project version.
func BundleKey(appID string) string {
	return "apps/" + appID + "/bundle.js"
}

// Noop is used when no object store is configured.
type Noop struct{}

func (Noop) Put(context.Context, string, io.Reader, PutObjectOptions) (ObjectInfo, error) {
	return ObjectInfo{}, ErrDisabled
}

func (Noop) Get(context.Context, string) (io.ReadCloser, ObjectInfo, error) {
	return nil, ObjectInfo{}, ErrDisabled
}

func (Noop) Delete(context.Context, string) error { return ErrDisabled }

func (Noop) PresignGet(context.Context, string, time.Duration) (string, error) {
	return "", ErrDisabled
}
