// Package ingest implements the bounded multi-producer, single-consumer
// FIFO described in spec.md §4.2: producers enqueue Write messages and
// the batcher drains them, non-blockingly, in its assemble phase.
package ingest

import (
	"errors"
	"sync/atomic"
)

// ErrWorkerDown is delivered to a completion handle that is given up
// on without being written — either because the batcher observed Exit
// mid-assembly (spec.md §4.6) or because the handle was still in the
// ingest queue after the batcher had stopped. Handles in, or queued
// behind, a batch whose write failed receive the writer's own error
// instead (§7 FatalIoError). The façade translates any error into the
// public ErrWorkerDown sentinel; producers never see the raw write error.
var ErrWorkerDown = errors.New("flashlog: worker down")

// Handle is a single-shot, write-once completion signal (spec.md's
// "completion handle"). A Handle is created per submission, handed to
// the ingest queue alongside the payload, and eventually transferred
// to the completion notifier, which signals it. The only other caller
// of Signal is the façade, which fails handles still left in the
// ingest queue after the batcher has stopped.
type Handle struct {
	done      chan error
	signaled  atomic.Bool
	abandoned atomic.Bool
}

// NewHandle creates an unsignaled completion handle.
func NewHandle() *Handle {
	return &Handle{done: make(chan error, 1)}
}

// Signal delivers err to the waiting producer and reports whether
// anyone was left to receive it. It is a no-op on any call after the
// first (I2: at-most-one signal). ok is false when the handle had
// already been Abandoned — the write still happened, but nothing is
// waiting on the result, matching spec.md §5's "dropped receiver" and
// §7's SignalDropped.
func (h *Handle) Signal(err error) (ok bool) {
	if !h.signaled.CompareAndSwap(false, true) {
		return false
	}
	if h.abandoned.Load() {
		return false
	}
	h.done <- err
	return true
}

// Abandon marks the handle as no longer awaited, e.g. because the
// producer timed out (spec.md §5: "Producers that must time out
// should drop their waiter"). The write itself still proceeds; a
// later Signal call on this handle reports ok=false and is ignored.
func (h *Handle) Abandon() {
	h.abandoned.Store(true)
}

// Wait blocks until Signal is called and returns its argument.
func (h *Handle) Wait() error {
	return <-h.done
}

// Kind distinguishes the two IngestMessage variants from spec.md §4.2.
type Kind int

const (
	// KindWrite carries a payload and its completion handle.
	KindWrite Kind = iota
	// KindExit is the terminal marker enqueued by Shutdown.
	KindExit
)

// Message is spec.md's IngestMessage: `Write{payload, completion_handle} | Exit`.
type Message struct {
	Kind    Kind
	Payload []byte
	Handle  *Handle
}

// WriteMessage builds a KindWrite Message.
func WriteMessage(payload []byte, h *Handle) Message {
	return Message{Kind: KindWrite, Payload: payload, Handle: h}
}

// ExitMessage builds a KindExit Message.
func ExitMessage() Message {
	return Message{Kind: KindExit}
}

// Queue is the bounded MPSC FIFO. Producers call Send, which blocks
// only when the queue is full (spec.md §4.2: "the only place
// producer-side back-pressure is applied"). The batcher is the single
// consumer and uses TryRecv in its non-blocking assemble phase.
type Queue struct {
	ch chan Message
}

// New creates a Queue with the given capacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Message, capacity)}
}

// Send enqueues msg, blocking if the queue is full.
func (q *Queue) Send(msg Message) {
	q.ch <- msg
}

// TryRecv attempts a non-blocking dequeue. ok is false when the queue
// was empty at the time of the call.
func (q *Queue) TryRecv() (msg Message, ok bool) {
	select {
	case msg = <-q.ch:
		return msg, true
	default:
		return Message{}, false
	}
}

// Len reports the number of messages currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Capacity derives the recommended ingest queue bound from spec.md
// §4.2's "large fixed value" as the original Rust implementation
// instantiates it: max_buffer / avg_msg_size, clamped to a sane range
// so pathological Options can't yield a zero- or unbounded-capacity
// channel.
func Capacity(maxBuffer, avgMsgSize int64, min, max int) int {
	if avgMsgSize <= 0 {
		avgMsgSize = 1
	}
	cap64 := maxBuffer / avgMsgSize
	if cap64 < int64(min) {
		return min
	}
	if cap64 > int64(max) {
		return max
	}
	return int(cap64)
}
