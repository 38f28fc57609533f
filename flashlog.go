// Package flashlog implements adaptive batched durable I/O for a
// high-throughput, low-latency append-only log writer: concurrent
// producers submit payloads, a single batcher thread coalesces them
// into block-aligned batches sized by an online throughput-feedback
// rule, and a dedicated notifier signals completion once each batch
// is durable.
package flashlog

import (
	"sync"

	"github.com/flashlog/flashlog/internal/constants"
	"github.com/flashlog/flashlog/internal/ingest"
	"github.com/flashlog/flashlog/internal/interfaces"
	"github.com/flashlog/flashlog/internal/ioring"
	"github.com/flashlog/flashlog/internal/logging"
	"github.com/flashlog/flashlog/internal/notify"
	"github.com/flashlog/flashlog/internal/queue"
)

// Logger is a handle to an open append-only log. It owns the batcher
// and notifier goroutines spawned by Open and must eventually be
// closed with Shutdown.
type Logger struct {
	writer    interfaces.Writer
	ingestQ   *ingest.Queue
	completeQ *notify.Queue
	batcher   *queue.Batcher
	notifier  *notify.Notifier
	logger    *logging.Logger
	metrics   *Metrics
	observer  Observer

	done         chan struct{} // closed once the batcher goroutine returns
	notifierDone chan struct{} // closed once the notifier goroutine returns

	shutdownOnce sync.Once
	deadMu       sync.RWMutex
	dead         bool
}

// Open opens or creates path for append-only unbuffered writes and
// spawns the batcher and completion-notifier workers (spec.md §4.1).
// Go has no destructor equivalent to the original design's
// end-of-scope cleanup; callers must `defer logger.Shutdown()`
// themselves (see DESIGN.md's caller lifecycle decision).
func Open(path string, opts Options) (*Logger, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	log := logging.Default().With("component", "flashlog")

	w, err := ioring.Open(path, log)
	if err != nil {
		return nil, NewOpenError(err)
	}

	metrics := NewMetrics()
	observer := NewMetricsObserver(metrics)

	ingestCap := ingest.Capacity(opts.MaxBuffer, opts.AvgMsgSize,
		constants.MinIngestQueueCapacity, constants.MaxIngestQueueCapacity)
	ingestQ := ingest.New(ingestCap)
	completeQ := notify.New(constants.CompletionQueueCapacity)

	batcher := queue.NewBatcher(queue.Config{
		Ingest:     ingestQ,
		Complete:   completeQ,
		Writer:     w,
		Logger:     log.With("stage", "batcher"),
		Observer:   observer,
		BlockSize:  opts.BlockSize,
		MaxBuffer:  opts.MaxBuffer,
		AvgMsgSize: opts.AvgMsgSize,
	})

	notifier := notify.NewNotifier(notify.Config{
		Queue:    completeQ,
		Logger:   log.With("stage", "notifier"),
		Observer: observer,
	})

	l := &Logger{
		writer:       w,
		ingestQ:      ingestQ,
		completeQ:    completeQ,
		batcher:      batcher,
		notifier:     notifier,
		logger:       log,
		metrics:      metrics,
		observer:     observer,
		done:         make(chan struct{}),
		notifierDone: make(chan struct{}),
	}

	go func() {
		notifier.Run()
		close(l.notifierDone)
	}()
	go func() {
		batcher.Run()

		// The batcher may stop for two reasons: Shutdown enqueued Exit,
		// or a fatal write terminated it on its own. Either way, a
		// producer can in principle have passed the not-dead check in
		// SubmitAndWait and be about to enqueue just as this happens.
		// Marking dead and draining any such stragglers under the same
		// lock SubmitAndWait holds while sending closes that window: no
		// Handle is ever left enqueued with nobody left to drain it.
		l.deadMu.Lock()
		l.dead = true
		for {
			msg, ok := l.ingestQ.TryRecv()
			if !ok {
				break
			}
			if msg.Handle != nil {
				msg.Handle.Signal(ingest.ErrWorkerDown)
			}
		}
		l.deadMu.Unlock()
		close(l.done)
	}()

	return l, nil
}

// SubmitAndWait enqueues payload and suspends until it has been
// written durably (spec.md §4.1). On success, payload was passed
// intact, in submission order relative to this goroutine's other
// submissions, to a successful file write.
func (l *Logger) SubmitAndWait(payload []byte) error {
	l.deadMu.RLock()
	if l.dead {
		l.deadMu.RUnlock()
		return ErrWorkerDown
	}
	h := ingest.NewHandle()
	l.ingestQ.Send(ingest.WriteMessage(payload, h))
	l.deadMu.RUnlock()

	if err := h.Wait(); err != nil {
		return ErrWorkerDown
	}
	return nil
}

// Metrics returns the Logger's private metrics; its Handler method
// serves them in Prometheus text format, suitable for mounting under
// an HTTP mux.
func (l *Logger) Metrics() *Metrics {
	return l.metrics
}

// Shutdown sends terminal markers into the ingest and completion
// queues and joins both workers (spec.md §4.6). Idempotent: repeated
// calls are no-ops. After Shutdown returns, SubmitAndWait always
// returns ErrWorkerDown, and neither the batcher nor the notifier
// goroutine is still running (P5: "leaves no background threads").
func (l *Logger) Shutdown() {
	l.shutdownOnce.Do(func() {
		l.ingestQ.Send(ingest.ExitMessage())
		<-l.done // dead is already true by the time this unblocks
		l.completeQ.Send(notify.ExitMessage())
		<-l.notifierDone
		_ = l.writer.Close()
	})
}
