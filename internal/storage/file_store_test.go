package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileStorePut(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	ref, err := fs.Put(context.Background(), "photo", "head shot.jpg", strings.NewReader("jpegbytes"), 9, "image/jpeg")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if !strings.HasPrefix(ref, "/uploads/photo/") {
		t.Fatalf("expected /uploads/photo/ reference, got %q", ref)
	}
	if strings.Contains(ref, " ") {
		t.Fatalf("reference should not contain spaces: %q", ref)
	}
	if !strings.HasSuffix(ref, "-head_shot.jpg") {
		t.Fatalf("expected sanitized original name in reference, got %q", ref)
	}

	stored := filepath.Join(dir, "photo", filepath.Base(ref))
	data, err := os.ReadFile(stored)
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "jpegbytes" {
		t.Fatalf("stored bytes mismatch: %q", data)
	}
}

func TestFileStorePutSeparatesFields(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	photoRef, err := fs.Put(context.Background(), "photo", "a.jpg", strings.NewReader("p"), 1, "image/jpeg")
	if err != nil {
		t.Fatalf("put photo: %v", err)
	}
	sigRef, err := fs.Put(context.Background(), "signature", "a.jpg", strings.NewReader("s"), 1, "image/jpeg")
	if err != nil {
		t.Fatalf("put signature: %v", err)
	}
	if photoRef == sigRef {
		t.Fatalf("same filename in different fields must not collide")
	}
	if !strings.Contains(sigRef, "/signature/") {
		t.Fatalf("expected field subdirectory in reference, got %q", sigRef)
	}
}

func TestFileStoreRejectsEmptyBase(t *testing.T) {
	if _, err := NewFileStore("  "); err == nil {
		t.Fatalf("expected empty base path to fail")
	}
}

func TestObjectNameStripsPathComponents(t *testing.T) {
	name := objectName(time.UnixMilli(1700000000000), "../../etc/passwd")
	if strings.Contains(name, "..") || strings.Contains(name, "/") {
		t.Fatalf("traversal must be stripped, got %q", name)
	}
	if !strings.HasPrefix(name, "1700000000000-") {
		t.Fatalf("expected millis prefix, got %q", name)
	}
}
