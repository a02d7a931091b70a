//go:build linux && iofile_uring

package iofile

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/theaidguild/spider/internal/errs"
)

// UringBackend hosts a dedicated worker goroutine pinned to an OS thread
// that performs file operations one request at a time with plain unix
// syscalls; it does not set up an io_uring ring. Every exported method
// sends a request over an unbuffered channel (each send waits until the
// worker takes it) and waits on a one-shot reply channel; if the worker is
// gone, the Backend methods fall back to Default. Write and Close on a
// stream opened through the worker do not fall back.
type UringBackend struct {
	reqs     chan uringRequest
	closed   chan struct{}
	once     sync.Once
	fallback Default
}

type uringOp int

const (
	opWrite uringOp = iota
	opRead
	opRemove
	opMkdirAll
	opStreamOpen
	opStreamWrite
	opStreamClose
)

type uringRequest struct {
	op     uringOp
	path   string
	data   []byte
	fd     int
	offset int64
	reply  chan uringReply
}

type uringReply struct {
	data []byte
	fd   int
	err  error
}

// NewUringBackend starts the worker goroutine. Call Close to stop it; the
// worker also exits if its request channel is closed.
func NewUringBackend() *UringBackend {
	b := &UringBackend{
		reqs:   make(chan uringRequest),
		closed: make(chan struct{}),
	}
	go b.run()
	return b
}

// Close stops the worker. Outstanding requests still in flight receive a
// BrokenPipe-flavored error.
func (b *UringBackend) Close() {
	b.once.Do(func() { close(b.closed) })
}

func (b *UringBackend) run() {
	// A real io_uring runtime would set up a single ring here and loop
	// io_uring_enter; this worker issues the equivalent unix syscalls
	// directly per request, which preserves the "dedicated worker thread,
	// serial processing" contract without depending on a ring library
	// that may not be vendored in the build environment.
	runtime.LockOSThread()
	for {
		select {
		case <-b.closed:
			return
		case req, ok := <-b.reqs:
			if !ok {
				return
			}
			req.reply <- b.handle(req)
		}
	}
}

func (b *UringBackend) handle(req uringRequest) uringReply {
	switch req.op {
	case opWrite:
		fd, ferr := unix.Open(req.path, unix.O_WRONLY|unix.O_CREAT|unix.O_TRUNC, 0o644)
		if ferr != nil {
			return uringReply{err: ferr}
		}
		defer unix.Close(fd)
		if _, werr := unix.Write(fd, req.data); werr != nil {
			return uringReply{err: werr}
		}
		return uringReply{}
	case opRead:
		data, err := os.ReadFile(req.path)
		return uringReply{data: data, err: err}
	case opRemove:
		err := unix.Unlink(req.path)
		if err == unix.ENOENT {
			err = nil
		}
		return uringReply{err: err}
	case opMkdirAll:
		return uringReply{err: os.MkdirAll(req.path, 0o755)}
	case opStreamOpen:
		f, err := os.Create(req.path)
		if err != nil {
			return uringReply{err: err}
		}
		fd := int(f.Fd())
		streamFiles.Store(fd, f)
		return uringReply{fd: fd}
	case opStreamWrite:
		v, ok := streamFiles.Load(req.fd)
		if !ok {
			return uringReply{err: fmt.Errorf("uring: unknown stream fd %d", req.fd)}
		}
		f := v.(*os.File)
		_, err := f.WriteAt(req.data, req.offset)
		return uringReply{err: err}
	case opStreamClose:
		v, ok := streamFiles.LoadAndDelete(req.fd)
		if !ok {
			return uringReply{}
		}
		f := v.(*os.File)
		return uringReply{err: f.Close()}
	}
	return uringReply{err: fmt.Errorf("uring: unknown op %d", req.op)}
}

var streamFiles sync.Map // fd (int) -> *os.File

func (b *UringBackend) send(ctx context.Context, req uringRequest) (uringReply, error) {
	req.reply = make(chan uringReply, 1)
	select {
	case b.reqs <- req:
	case <-b.closed:
		return uringReply{}, &errs.IOError{Op: "submit", Path: req.path, Err: os.ErrClosed}
	case <-ctx.Done():
		return uringReply{}, &errs.CancelledError{Reason: "uring submit " + req.path}
	}
	select {
	case rep := <-req.reply:
		return rep, nil
	case <-ctx.Done():
		return uringReply{}, &errs.CancelledError{Reason: "uring await " + req.path}
	}
}

func (b *UringBackend) WriteFile(ctx context.Context, path string, data []byte) error {
	rep, err := b.send(ctx, uringRequest{op: opWrite, path: path, data: data})
	if err != nil {
		return b.fallback.WriteFile(ctx, path, data)
	}
	if rep.err != nil {
		return &errs.IOError{Op: "write", Path: path, Err: rep.err}
	}
	return nil
}

func (b *UringBackend) ReadFile(ctx context.Context, path string) ([]byte, error) {
	rep, err := b.send(ctx, uringRequest{op: opRead, path: path})
	if err != nil {
		return b.fallback.ReadFile(ctx, path)
	}
	if rep.err != nil {
		return nil, &errs.IOError{Op: "read", Path: path, Err: rep.err}
	}
	return rep.data, nil
}

func (b *UringBackend) RemoveFile(ctx context.Context, path string) error {
	rep, err := b.send(ctx, uringRequest{op: opRemove, path: path})
	if err != nil {
		return b.fallback.RemoveFile(ctx, path)
	}
	if rep.err != nil {
		return &errs.IOError{Op: "remove", Path: path, Err: rep.err}
	}
	return nil
}

func (b *UringBackend) CreateDirAll(ctx context.Context, path string) error {
	rep, err := b.send(ctx, uringRequest{op: opMkdirAll, path: path})
	if err != nil {
		return b.fallback.CreateDirAll(ctx, path)
	}
	if rep.err != nil {
		return &errs.IOError{Op: "mkdir", Path: path, Err: rep.err}
	}
	return nil
}

func (b *UringBackend) NewStreamingWriter(ctx context.Context, path string) (StreamingWriter, error) {
	rep, err := b.send(ctx, uringRequest{op: opStreamOpen, path: path})
	if err != nil {
		return b.fallback.NewStreamingWriter(ctx, path)
	}
	if rep.err != nil {
		return nil, &errs.IOError{Op: "create", Path: path, Err: rep.err}
	}
	return &uringStreamingWriter{backend: b, path: path, fd: rep.fd}, nil
}

// uringStreamingWriter maintains its own offset and serializes
// Write/Close through the worker. A writer dropped without Close leaves
// its file open: nothing finalizes it, and the worker does not close open
// stream files when the backend is closed.
type uringStreamingWriter struct {
	backend *UringBackend
	path    string
	fd      int
	offset  int64
}

func (w *uringStreamingWriter) Write(ctx context.Context, chunk []byte) error {
	rep, err := w.backend.send(ctx, uringRequest{op: opStreamWrite, fd: w.fd, data: chunk, offset: w.offset})
	if err != nil {
		return &errs.IOError{Op: "write", Path: w.path, Err: err}
	}
	if rep.err != nil {
		return &errs.IOError{Op: "write", Path: w.path, Err: rep.err}
	}
	w.offset += int64(len(chunk))
	return nil
}

func (w *uringStreamingWriter) Close() error {
	rep, err := w.backend.send(context.Background(), uringRequest{op: opStreamClose, fd: w.fd})
	if err != nil {
		return &errs.IOError{Op: "close", Path: w.path, Err: err}
	}
	if rep.err != nil {
		return &errs.IOError{Op: "close", Path: w.path, Err: rep.err}
	}
	return nil
}
