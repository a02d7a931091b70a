//go:build !(linux && iofile_uring)

package iofile

// newAcceleratedBackend returns nil on platforms/builds without the
// io_uring worker, so NewBackend falls back to Default.
func newAcceleratedBackend() Backend { return nil }
