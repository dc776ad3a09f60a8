package storage

import (
	"context"
	"net/http"
)

// BlobStore keeps uploaded assets and returns the content address they can be
// fetched by.
type BlobStore interface {
	Store(ctx context.Context, data []byte, filename string) (string, error)
}

// HTTPClient interface
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
