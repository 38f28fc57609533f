// Package notify implements the completion notifier described in
// spec.md §4.5: a dedicated stage, decoupled from the batcher, that
// fans out "your write is durable" signals to waiting producers.
package notify

import (
	"github.com/flashlog/flashlog/internal/ingest"
	"github.com/flashlog/flashlog/internal/interfaces"
)

// Kind distinguishes the two CompletionMessage variants from spec.md §4.5.
type Kind int

const (
	// KindWake carries the ordered list of handles to signal.
	KindWake Kind = iota
	// KindExit is the terminal marker enqueued by Shutdown.
	KindExit
)

// Message is spec.md's CompletionMessage: `Wake(handles) | Exit`.
type Message struct {
	Kind    Kind
	Handles []*ingest.Handle
	// Err, when non-nil, is delivered to every handle in Handles
	// instead of nil (used on the batcher's Exit and fatal-write
	// paths, where the handles that were not durably written must
	// observe failure rather than success).
	Err error
}

// WakeMessage builds a KindWake Message that signals every handle
// with a nil (success) error.
func WakeMessage(handles []*ingest.Handle) Message {
	return Message{Kind: KindWake, Handles: handles}
}

// FailMessage builds a KindWake Message that signals every handle
// with err.
func FailMessage(handles []*ingest.Handle, err error) Message {
	return Message{Kind: KindWake, Handles: handles, Err: err}
}

// ExitMessage builds a KindExit Message.
func ExitMessage() Message {
	return Message{Kind: KindExit}
}

// Queue is the bounded SPSC FIFO between the batcher and the notifier
// (spec.md §4.5: "a bounded FIFO (e.g. capacity 100)").
type Queue struct {
	ch chan Message
}

// New creates a completion Queue with the given capacity.
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan Message, capacity)}
}

// Send enqueues msg. The batcher is the sole producer; this blocks
// only if the notifier has fallen far enough behind to fill the
// queue, which spec.md §4.3 step 4 requires stay "very brief".
func (q *Queue) Send(msg Message) {
	q.ch <- msg
}

// Len reports the number of messages currently buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Notifier drains a Queue and signals handles in FIFO order, on its
// own long-lived OS thread-backed goroutine, separate from the
// batcher (spec.md §4.5's latency-decoupling rationale).
type Notifier struct {
	queue    *Queue
	logger   logger
	observer interfaces.NotifierObserver
}

type logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Config configures a Notifier.
type Config struct {
	Queue    *Queue
	Logger   logger
	Observer interfaces.NotifierObserver
}

// NewNotifier creates a Notifier bound to cfg.Queue. Call Run to start
// its loop; Run blocks until a KindExit message is drained.
func NewNotifier(cfg Config) *Notifier {
	return &Notifier{queue: cfg.Queue, logger: cfg.Logger, observer: cfg.Observer}
}

// Run drains the notifier's queue until it sees a KindExit message.
// Intended to be launched with `go notifier.Run()`.
func (n *Notifier) Run() {
	for msg := range n.queue.ch {
		if n.observer != nil {
			n.observer.ObserveCompletionQueueLen(n.queue.Len())
		}
		if msg.Kind == KindExit {
			return
		}
		n.wake(msg)
	}
}

// wake signals every handle in msg.Handles, in order. A dropped
// receiver (the producer gave up waiting) is tolerated and does not
// affect any other handle (spec.md §4.5, §7 SignalDropped).
func (n *Notifier) wake(msg Message) {
	for _, h := range msg.Handles {
		if !h.Signal(msg.Err) {
			if n.observer != nil {
				n.observer.ObserveSignalDropped()
			}
			if n.logger != nil {
				n.logger.Debug("completion handle receiver was already gone")
			}
		}
	}
}
