package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/config"
)

// File is an uploaded attachment held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Storage persists attachment content and returns a locator (URL or data URI).
type Storage interface {
	Save(ctx context.Context, file File) (string, error)
}

const (
	DriverLocal  = "local"
	DriverInline = "inline"
	DriverMinio  = "minio"
)

// New selects a backend. An explicit STORAGE_DRIVER wins; otherwise
// development uses local disk and other environments use object storage
// when configured, falling back to inline data URIs.
func New(ctx context.Context, appCfg config.AppConfig, cfg config.StorageConfig, logger *zap.Logger) (Storage, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" {
		switch {
		case appCfg.IsDevelopment():
			driver = DriverLocal
		case cfg.Minio.Endpoint != "":
			driver = DriverMinio
		default:
			driver = DriverInline
		}
	}

	logger.Info("attachment storage selected", zap.String("driver", driver))
	switch driver {
	case DriverLocal:
		return NewLocalStorage(cfg.LocalDir, cfg.PublicBaseURL)
	case DriverInline:
		return NewInlineStorage(), nil
	case DriverMinio:
		return NewMinioStorage(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// objectName builds a collision-free name that keeps the original extension.
func objectName(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	return now.Format("20060102") + "/" + now.Format("150405") + "_" + uuid.NewString() + ext
}
