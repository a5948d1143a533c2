// Package gcs fetches receipt images stored in Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

const DefaultMaxBytes = 20 << 20

type openFunc func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// Fetcher serves gs://bucket/object sources.
type Fetcher struct {
	open     openFunc
	maxBytes int64
}

func NewFetcher(client *storage.Client, maxBytes int64) *Fetcher {
	return newFetcher(func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		return client.Bucket(bucket).Object(object).NewReader(ctx)
	}, maxBytes)
}

func newFetcher(open openFunc, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Fetcher{open: open, maxBytes: maxBytes}
}

func (f *Fetcher) Supports(uri string) bool {
	return strings.HasPrefix(uri, "gs://")
}

func (f *Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := f.open(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("open GCS object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("GCS object exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

// ParseURI splits gs://bucket/path/to/object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}
