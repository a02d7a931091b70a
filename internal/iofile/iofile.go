// Package iofile provides a uniform interface over file operations used by
// the crawl engine (streaming response bodies to disk). The default
// backend is plain blocking os calls made on the calling goroutine; an
// optional accelerated backend (build tag iofile_uring, Linux only) routes
// file operations through a dedicated worker goroutine and falls back to
// the default backend if that worker isn't running.
package iofile

import (
	"context"
	"os"

	"github.com/theaidguild/spider/internal/errs"
)

// Backend is the narrow file-I/O interface every implementation satisfies.
type Backend interface {
	WriteFile(ctx context.Context, path string, data []byte) error
	ReadFile(ctx context.Context, path string) ([]byte, error)
	RemoveFile(ctx context.Context, path string) error
	CreateDirAll(ctx context.Context, path string) error
	NewStreamingWriter(ctx context.Context, path string) (StreamingWriter, error)
}

// StreamingWriter writes a file incrementally, used for large bodies
// streamed to disk rather than buffered in memory.
type StreamingWriter interface {
	Write(ctx context.Context, chunk []byte) error
	Close() error
}

// Default is the standard-library-backed implementation. Every operation
// runs the blocking syscall in the calling goroutine; callers that need a
// suspension point should invoke it from within a task launched for that
// purpose, matching the scheduling model in section 5 of the crawl spec.
type Default struct{}

func (Default) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return &errs.CancelledError{Reason: "write " + path}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &errs.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (Default) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &errs.CancelledError{Reason: "read " + path}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &errs.IOError{Op: "read", Path: path, Err: err}
	}
	return b, nil
}

func (Default) RemoveFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return &errs.CancelledError{Reason: "remove " + path}
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return &errs.IOError{Op: "remove", Path: path, Err: err}
	}
	return nil
}

func (Default) CreateDirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return &errs.CancelledError{Reason: "mkdir " + path}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return &errs.IOError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

func (Default) NewStreamingWriter(ctx context.Context, path string) (StreamingWriter, error) {
	if err := ctx.Err(); err != nil {
		return nil, &errs.CancelledError{Reason: "create " + path}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, &errs.IOError{Op: "create", Path: path, Err: err}
	}
	return &defaultStreamingWriter{f: f, path: path}, nil
}

type defaultStreamingWriter struct {
	f    *os.File
	path string
}

func (w *defaultStreamingWriter) Write(ctx context.Context, chunk []byte) error {
	if err := ctx.Err(); err != nil {
		return &errs.CancelledError{Reason: "write " + w.path}
	}
	if _, err := w.f.Write(chunk); err != nil {
		return &errs.IOError{Op: "write", Path: w.path, Err: err}
	}
	return nil
}

func (w *defaultStreamingWriter) Close() error {
	if err := w.f.Close(); err != nil {
		return &errs.IOError{Op: "close", Path: w.path, Err: err}
	}
	return nil
}
