package ioring

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/flashlog/flashlog/internal/logging"
)

// Writer is the I/O writer stage's contract: exactly one unbuffered
// write per batch, durable by the time WriteAll returns successfully.
type Writer interface {
	WriteAll(data []byte) error
	Close() error
}

// Open opens path for append-only durable writes. It first tries an
// O_DIRECT file plus a raw io_uring ring; if either the filesystem or
// the kernel doesn't support that path it falls back to a regular
// buffered file with an explicit fdatasync per batch (Open Question
// O2 in SPEC_FULL.md). Errors other than "direct I/O unsupported" are
// returned as-is — a bad path or permission error must reach the
// caller of Logger.Open.
func Open(path string, log *logging.Logger) (Writer, error) {
	w, err := openDirect(path)
	if err == nil {
		return w, nil
	}
	if isUnsupportedDirectIO(err) {
		log.Warn("unbuffered I/O unavailable, falling back to buffered+fdatasync", "path", path, "reason", err)
		return openBuffered(path)
	}
	return nil, err
}

func isUnsupportedDirectIO(err error) bool {
	switch err {
	case unix.EINVAL, unix.ENOTSUP, unix.EOPNOTSUPP, unix.ENOSYS:
		return true
	}
	var errno syscall.Errno
	if e, ok := err.(syscall.Errno); ok {
		errno = e
	} else {
		return false
	}
	switch errno {
	case unix.EINVAL, unix.ENOTSUP, unix.EOPNOTSUPP, unix.ENOSYS:
		return true
	default:
		return false
	}
}

// directWriter drives O_DIRECT append writes through the raw io_uring
// ring. fsync happens through the ring too, matching the original
// implementation's one-sync-data-call-per-batch durability contract.
//
// O_DIRECT requires the kernel to reject buffer addresses, file
// offsets, and transfer lengths that aren't aligned to the
// filesystem's logical block size (spec.md §9 open question O2) —
// and batches handed to WriteAll are ordinary heap slices of
// arbitrary length, so an EINVAL/ENOTSUP/EOPNOTSUPP from the ring at
// write time means "this transfer's alignment, not this file,
// defeated O_DIRECT": directWriter transparently and permanently
// switches to a bufferedWriter on the same path from that point on,
// the same fallback Open already performs when O_DIRECT fails up
// front.
// ringIO is the slice of *Ring that directWriter needs, narrowed so
// tests can exercise the write-time alignment fallback without a real
// io_uring instance.
type ringIO interface {
	Write(fd int, buf []byte) (Result, error)
	Fsync(fd int) (Result, error)
	Close() error
}

type directWriter struct {
	path     string
	fd       int
	ring     ringIO
	fallback Writer // once set, every WriteAll delegates here
}

func openDirect(path string) (Writer, error) {
	fd, err := unix.Open(path, unix.O_WRONLY|unix.O_CREAT|unix.O_APPEND|unix.O_DIRECT, 0644)
	if err != nil {
		return nil, err
	}

	ring, err := NewRing(8)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return &directWriter{path: path, fd: fd, ring: ring}, nil
}

func (w *directWriter) WriteAll(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if w.fallback != nil {
		return w.fallback.WriteAll(data)
	}

	remaining := data
	for len(remaining) > 0 {
		res, err := w.ring.Write(w.fd, remaining)
		if err == nil {
			err = res.Err
		}
		if err != nil {
			if isUnsupportedDirectIO(err) {
				return w.switchToBuffered(remaining)
			}
			return fmt.Errorf("ioring write: %w", err)
		}
		if res.Value <= 0 {
			return fmt.Errorf("ioring write: short write, wrote 0 of %d bytes", len(remaining))
		}
		remaining = remaining[res.Value:]
	}

	res, err := w.ring.Fsync(w.fd)
	if err == nil {
		err = res.Err
	}
	if err != nil {
		if isUnsupportedDirectIO(err) {
			// Everything up to here was already written through the
			// ring; adopt the fallback for later batches, then make
			// the durability call for this one with fdatasync(2).
			if err := w.switchToBuffered(nil); err != nil {
				return err
			}
			return unix.Fdatasync(w.fd)
		}
		return fmt.Errorf("ioring fdatasync: %w", err)
	}
	return nil
}

// switchToBuffered opens a second, non-O_DIRECT append handle on the
// same path, adopts it as the permanent fallback for every future
// WriteAll, and writes the still-unwritten tail through it. Safe to
// call mid-batch: O_APPEND on the new handle picks up wherever the
// O_DIRECT handle left off, and any prefix of this batch already
// written via the ring is not rewritten.
func (w *directWriter) switchToBuffered(remainingTail []byte) error {
	bw, err := openBuffered(w.path)
	if err != nil {
		return fmt.Errorf("falling back to buffered I/O after unaligned O_DIRECT write: %w", err)
	}
	w.fallback = bw
	return bw.WriteAll(remainingTail)
}

func (w *directWriter) Close() error {
	ringErr := w.ring.Close()
	fdErr := unix.Close(w.fd)
	var fallbackErr error
	if w.fallback != nil {
		fallbackErr = w.fallback.Close()
	}
	if ringErr != nil {
		return ringErr
	}
	if fdErr != nil {
		return fdErr
	}
	return fallbackErr
}
