package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage writes files under a directory served at publicBaseURL.
type LocalStorage struct {
	dir           string
	publicBaseURL string
	now           func() time.Time
}

// NewLocalStorage ensures dir exists.
func NewLocalStorage(dir, publicBaseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/"), now: time.Now}, nil
}

func (s *LocalStorage) Save(_ context.Context, file File) (string, error) {
	name := objectName(file.Name, s.now())
	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create upload subdir: %w", err)
	}
	if err := os.WriteFile(path, file.Data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.publicBaseURL + "/" + name, nil
}

// Dir is the root directory served as static content.
func (s *LocalStorage) Dir() string {
	return s.dir
}
