package storage

import (
	"context"
	"encoding/base64"
)

// InlineStorage embeds content in a data URI; used where no writable disk or
// bucket exists.
type InlineStorage struct{}

// NewInlineStorage constructs the backend.
func NewInlineStorage() *InlineStorage {
	return &InlineStorage{}
}

func (InlineStorage) Save(_ context.Context, file File) (string, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(file.Data), nil
}
