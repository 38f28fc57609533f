package queue

import "sync"

// Buffer size thresholds. GetBuffer rounds up to the nearest bucket;
// requests larger than the top bucket get an unpooled allocation
// (batches that large are rare — target_batch_size only grows that
// big under sustained high throughput, per spec.md §4.4).
//
// Uses *[]byte pattern to avoid sync.Pool interface allocation overhead.
const (
	size128k = 128 * 1024
	size256k = 256 * 1024
	size512k = 512 * 1024
	size1m   = 1024 * 1024
	size2m   = 2 * 1024 * 1024
	size4m   = 4 * 1024 * 1024
	size8m   = 8 * 1024 * 1024
)

// globalPool is the shared batch-buffer pool for all batchers in the
// process. Uses pointer-to-slice pattern for efficient sync.Pool usage.
var globalPool = struct {
	pool128k, pool256k, pool512k, pool1m, pool2m, pool4m, pool8m sync.Pool
}{
	pool128k: sync.Pool{New: func() any { b := make([]byte, size128k); return &b }},
	pool256k: sync.Pool{New: func() any { b := make([]byte, size256k); return &b }},
	pool512k: sync.Pool{New: func() any { b := make([]byte, size512k); return &b }},
	pool1m:   sync.Pool{New: func() any { b := make([]byte, size1m); return &b }},
	pool2m:   sync.Pool{New: func() any { b := make([]byte, size2m); return &b }},
	pool4m:   sync.Pool{New: func() any { b := make([]byte, size4m); return &b }},
	pool8m:   sync.Pool{New: func() any { b := make([]byte, size8m); return &b }},
}

// GetBuffer returns a buffer with capacity at least size, truncated to
// length 0 so callers append into it. Caller must call PutBuffer when
// the batch has been flushed.
func GetBuffer(size int64) []byte {
	switch {
	case size <= size128k:
		return (*globalPool.pool128k.Get().(*[]byte))[:0]
	case size <= size256k:
		return (*globalPool.pool256k.Get().(*[]byte))[:0]
	case size <= size512k:
		return (*globalPool.pool512k.Get().(*[]byte))[:0]
	case size <= size1m:
		return (*globalPool.pool1m.Get().(*[]byte))[:0]
	case size <= size2m:
		return (*globalPool.pool2m.Get().(*[]byte))[:0]
	case size <= size4m:
		return (*globalPool.pool4m.Get().(*[]byte))[:0]
	case size <= size8m:
		return (*globalPool.pool8m.Get().(*[]byte))[:0]
	default:
		return make([]byte, 0, size)
	}
}

// PutBuffer returns a buffer to the pool its capacity belongs to.
// Buffers with non-standard capacity (including the unpooled
// oversized case) are dropped instead of pooled.
func PutBuffer(buf []byte) {
	switch cap(buf) {
	case size128k:
		globalPool.pool128k.Put(&buf)
	case size256k:
		globalPool.pool256k.Put(&buf)
	case size512k:
		globalPool.pool512k.Put(&buf)
	case size1m:
		globalPool.pool1m.Put(&buf)
	case size2m:
		globalPool.pool2m.Put(&buf)
	case size4m:
		globalPool.pool4m.Put(&buf)
	case size8m:
		globalPool.pool8m.Put(&buf)
	}
}
