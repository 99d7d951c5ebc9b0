package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// FileStore saves uploaded files to disk under a base directory, one
// subdirectory per form field. References are the /uploads/... paths the
// server exposes as static files.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the directory the server should serve at /uploads/.
func (f *FileStore) BasePath() string { return f.basePath }

// Put writes an uploaded file under a field-specific folder and returns
// its public path.
func (f *FileStore) Put(_ context.Context, field, filename string, r io.Reader, _ int64, _ string) (string, error) {
	targetDir := filepath.Join(f.basePath, field)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create field dir: %w", err)
	}
	stored := objectName(time.Now(), filename)
	target := filepath.Join(targetDir, stored)

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path.Join("/uploads", field, stored), nil
}
