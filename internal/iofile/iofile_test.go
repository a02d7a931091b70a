package iofile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultWriteReadRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	ctx := context.Background()
	var b Default

	if err := b.WriteFile(ctx, path, []byte("hello")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := b.ReadFile(ctx, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q, want hello", got)
	}
	if err := b.RemoveFile(ctx, path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("expected file removed")
	}
}

func TestDefaultStreamingWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stream.bin")
	ctx := context.Background()
	var b Default

	w, err := b.NewStreamingWriter(ctx, path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.Write(ctx, []byte("chunk1")); err != nil {
		t.Fatalf("write chunk1: %v", err)
	}
	if err := w.Write(ctx, []byte("chunk2")); err != nil {
		t.Fatalf("write chunk2: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("readfile: %v", err)
	}
	if string(got) != "chunk1chunk2" {
		t.Errorf("got %q, want chunk1chunk2", got)
	}
}

func TestNewBackendFallsBackToDefault(t *testing.T) {
	b := NewBackend()
	if _, ok := b.(Default); !ok {
		t.Skip("accelerated backend built in this configuration")
	}
}

func TestDefaultRemoveMissingFileIsNotAnError(t *testing.T) {
	var b Default
	if err := b.RemoveFile(context.Background(), filepath.Join(t.TempDir(), "missing")); err != nil {
		t.Errorf("removing a missing file should be a no-op, got %v", err)
	}
}
