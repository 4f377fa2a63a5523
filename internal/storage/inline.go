package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// DefaultInlineLimit caps inline images at 2 MiB; anything larger would
// bloat the persisted post blob.
const DefaultInlineLimit = 2 << 20

// InlineService embeds images directly into the post as a base64 data URL.
// Used when no object storage bucket is configured, so the app keeps
// working fully offline.
type InlineService struct {
	maxBytes int
}

func NewInlineService(maxBytes int) *InlineService {
	if maxBytes <= 0 {
		maxBytes = DefaultInlineLimit
	}
	return &InlineService{maxBytes: maxBytes}
}

func (s *InlineService) UploadImage(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("image data is empty")
	}
	if len(data) > s.maxBytes {
		return "", fmt.Errorf("image exceeds inline limit of %d bytes", s.maxBytes)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Delete is a no-op: inline images live inside the post they belong to and
// disappear with it.
func (s *InlineService) Delete(ctx context.Context, key string) error {
	return nil
}

var _ Service = (*InlineService)(nil)
