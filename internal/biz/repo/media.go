package repo

import (
	"context"
)

// MediaRepo uploads media to the chat service
type MediaRepo interface {
	// Upload stores data and returns the backend media reference
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Fetcher downloads remote resources
type Fetcher interface {
	// Get returns the response body of a GET request
	Get(ctx context.Context, url string) ([]byte, error)
}
