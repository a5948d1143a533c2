package ports

import "context"

// SourceFetcher downloads remote image bytes for URIs it supports.
type SourceFetcher interface {
	Supports(uri string) bool
	Fetch(ctx context.Context, uri string) ([]byte, error)
}
