package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/helpdesk-line/repair-service/internal/config"
)

func TestInlineStorage(t *testing.T) {
	locator, err := NewInlineStorage().Save(context.Background(), File{Name: "a.txt", ContentType: "text/plain", Data: []byte("hi")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if locator != "data:text/plain;base64,aGk=" {
		t.Fatalf("unexpected locator %q", locator)
	}

	locator, _ = NewInlineStorage().Save(context.Background(), File{Name: "blob", Data: []byte("hi")})
	if !strings.HasPrefix(locator, "data:application/octet-stream;base64,") {
		t.Fatalf("missing content type should default, got %q", locator)
	}
}

func TestLocalStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStorage(dir, "/uploads/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	locator, err := store.Save(context.Background(), File{Name: "Printer.JPG", ContentType: "image/jpeg", Data: []byte("jpeg")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(locator, "/uploads/") || !strings.HasSuffix(locator, ".jpg") {
		t.Fatalf("unexpected locator %q", locator)
	}

	onDisk := filepath.Join(store.Dir(), filepath.FromSlash(strings.TrimPrefix(locator, "/uploads/")))
	data, err := os.ReadFile(onDisk)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("file not written: %v", err)
	}

	second, _ := store.Save(context.Background(), File{Name: "Printer.JPG", Data: []byte("jpeg")})
	if second == locator {
		t.Fatal("names must not collide")
	}
}

func TestNewSelectsDriver(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	dev, err := New(ctx, config.AppConfig{Env: "development"}, config.StorageConfig{LocalDir: t.TempDir(), PublicBaseURL: "/uploads"}, logger)
	if err != nil {
		t.Fatalf("dev: %v", err)
	}
	if _, ok := dev.(*LocalStorage); !ok {
		t.Fatalf("development should use local disk, got %T", dev)
	}

	prod, err := New(ctx, config.AppConfig{Env: "production"}, config.StorageConfig{}, logger)
	if err != nil {
		t.Fatalf("prod: %v", err)
	}
	if _, ok := prod.(*InlineStorage); !ok {
		t.Fatalf("production without bucket should inline, got %T", prod)
	}

	if _, err := New(ctx, config.AppConfig{}, config.StorageConfig{Driver: "ftp"}, logger); err == nil {
		t.Fatal("unknown driver should fail")
	}
}
