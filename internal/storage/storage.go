package storage

import "context"

// Service turns an uploaded image into a URL the feed can embed in posts
// and profiles.
type Service interface {
	UploadImage(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}
