// Package storage provides the upload backends: local disk for
// development, MinIO/S3 for deployments. Both return a stable reference
// string the web layer can later render as an image source.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BlobStore persists one uploaded file part and returns its reference.
// field is the form field the part arrived under (photo, signature).
type BlobStore interface {
	Put(ctx context.Context, field, filename string, r io.Reader, size int64, contentType string) (string, error)
}

// objectName derives the stored name from the upload time in millis plus
// the sanitized original filename.
func objectName(now time.Time, filename string) string {
	name := filepath.Base(filename)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.TrimSpace(name)
	if name == "" || name == "." {
		name = "upload"
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + name
}
