package iofile

import "context"

// NewBackend returns the best available backend: the io_uring-accelerated
// one when this binary was built with the iofile_uring tag on Linux and
// initialization succeeds, the Default backend otherwise. Every operation
// on the accelerated backend falls back to Default transparently if its
// worker channel is broken, so callers never need to branch on which
// backend they got.
func NewBackend() Backend {
	if b := newAcceleratedBackend(); b != nil {
		return b
	}
	return Default{}
}

// StreamingWriterFor is a convenience that opens a streaming writer on the
// given backend, creating parent directories first.
func StreamingWriterFor(ctx context.Context, b Backend, dir, path string) (StreamingWriter, error) {
	if dir != "" {
		if err := b.CreateDirAll(ctx, dir); err != nil {
			return nil, err
		}
	}
	return b.NewStreamingWriter(ctx, path)
}
