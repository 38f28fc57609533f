package queue

import (
	"time"

	"github.com/flashlog/flashlog/internal/constants"
	"github.com/flashlog/flashlog/internal/ingest"
	"github.com/flashlog/flashlog/internal/interfaces"
	"github.com/flashlog/flashlog/internal/logging"
	"github.com/flashlog/flashlog/internal/notify"
)

// Batcher is the adaptive batch-sizer described in spec.md §4.3: it
// owns the file's writer exclusively, drains the ingest queue, and
// runs the assemble/skip-empty/flush/signal/control/align loop once
// per batch. Only one Batcher goroutine is ever run per Logger (I1).
type Batcher struct {
	ingest   *ingest.Queue
	complete *notify.Queue
	writer   interfaces.Writer
	logger   *logging.Logger
	observer interfaces.BatcherObserver

	blockSize  int64
	maxBuffer  int64
	avgMsgSize int64

	// Control state (spec.md §4.3): thread-local to the batcher, no
	// synchronization required since only this goroutine touches it.
	targetBatchSize int64
	lastThroughput  float64

	// fatalErr is set once the writer fails; every subsequent pending
	// and future handle observes it via WorkerDown (§7 FatalIoError).
	fatalErr error
}

// Config configures a Batcher.
type Config struct {
	Ingest     *ingest.Queue
	Complete   *notify.Queue
	Writer     interfaces.Writer
	Logger     *logging.Logger
	Observer   interfaces.BatcherObserver
	BlockSize  int64
	MaxBuffer  int64
	AvgMsgSize int64
}

// NewBatcher creates a Batcher with target_batch_size initialized to
// block_size (spec.md §4.3: "Initial state: target_batch_size :=
// block_size").
func NewBatcher(cfg Config) *Batcher {
	return &Batcher{
		ingest:          cfg.Ingest,
		complete:        cfg.Complete,
		writer:          cfg.Writer,
		logger:          cfg.Logger,
		observer:        cfg.Observer,
		blockSize:       cfg.BlockSize,
		maxBuffer:       cfg.MaxBuffer,
		avgMsgSize:      cfg.AvgMsgSize,
		targetBatchSize: cfg.BlockSize,
		lastThroughput:  0,
	}
}

// FatalErr returns the error that terminated the batcher's loop, or
// nil if Run has not yet observed a fatal write failure.
func (b *Batcher) FatalErr() error {
	return b.fatalErr
}

// Run executes the main loop until an Exit message is drained or a
// write proves fatal. Intended to be launched with `go batcher.Run()`.
func (b *Batcher) Run() {
	if b.logger != nil {
		b.logger.Debug("batcher starting", "target_batch_size", b.targetBatchSize)
	}

	batchBuffer := GetBuffer(b.targetBatchSize)
	var pendingHandles []*ingest.Handle

	for {
		start := time.Now()
		batchBuffer = batchBuffer[:0]
		pendingHandles = pendingHandles[:0]

		exit := b.assemble(&batchBuffer, &pendingHandles)
		if exit {
			// §4.6 step 2: abandon any still-buffered payloads in the
			// current iteration without writing them.
			b.failPending(pendingHandles, ingest.ErrWorkerDown)
			PutBuffer(batchBuffer)
			if b.logger != nil {
				b.logger.Debug("batcher observed Exit, terminating")
			}
			return
		}

		if len(batchBuffer) == 0 {
			// Step 2: skip empty, no I/O, no control-state update.
			time.Sleep(constants.EmptyQueuePollInterval)
			continue
		}

		if err := b.flush(batchBuffer); err != nil {
			b.fatalErr = err
			b.failPending(pendingHandles, err)
			b.drainRemainingAsFailed(err)
			PutBuffer(batchBuffer)
			if b.logger != nil {
				b.logger.Error("write failed, batcher terminating", "err", err)
			}
			return
		}

		b.signal(pendingHandles)

		throughput := computeThroughput(len(batchBuffer), time.Since(start))
		b.control(throughput)
		b.align()
		b.lastThroughput = throughput

		if b.observer != nil {
			b.observer.ObserveTargetBatchSize(b.targetBatchSize)
		}
	}
}

// assemble implements step 1: non-blockingly drain the ingest queue
// into batchBuffer/pendingHandles. Returns true if Exit was observed.
func (b *Batcher) assemble(batchBuffer *[]byte, pendingHandles *[]*ingest.Handle) (exit bool) {
	for {
		msg, ok := b.ingest.TryRecv()
		if !ok {
			if b.observer != nil {
				b.observer.ObserveIngestQueueLen(b.ingest.Len())
			}
			return false
		}

		if msg.Kind == ingest.KindExit {
			return true
		}

		*batchBuffer = append(*batchBuffer, msg.Payload...)
		*pendingHandles = append(*pendingHandles, msg.Handle)

		if int64(len(*batchBuffer))+b.avgMsgSize > b.targetBatchSize {
			return false
		}
	}
}

// flush implements step 3.
func (b *Batcher) flush(batchBuffer []byte) error {
	start := time.Now()
	err := b.writer.WriteAll(batchBuffer)
	if b.observer != nil {
		if err != nil {
			b.observer.ObserveWriteError()
		} else {
			b.observer.ObserveFlush(len(batchBuffer), time.Since(start).Seconds())
		}
	}
	return err
}

// signal implements step 4: hand pendingHandles to the completion
// notifier. The enqueue is non-blocking on the batcher's own state —
// it may briefly block on a full completion queue, which spec.md §5
// documents as the only other place the batcher blocks.
func (b *Batcher) signal(pendingHandles []*ingest.Handle) {
	if len(pendingHandles) == 0 {
		return
	}
	handles := make([]*ingest.Handle, len(pendingHandles))
	copy(handles, pendingHandles)
	b.complete.Send(notify.WakeMessage(handles))
}

// control implements §4.4's adaptive sizing rule.
func (b *Batcher) control(throughput float64) {
	err := adaptiveErr(throughput, b.lastThroughput)
	switch {
	case err >= constants.AdaptiveSizingThreshold:
		b.targetBatchSize = int64(float64(b.targetBatchSize) * constants.GrowthFactor)
	case err <= -constants.AdaptiveSizingThreshold:
		b.targetBatchSize = int64(float64(b.targetBatchSize) * constants.ShrinkFactor)
	}
}

// adaptiveErr computes (throughput - last) / last, treating the first
// iteration (last == 0) as always satisfying err >= 0.1, per spec.md
// §4.4: "equivalently, grow on the first real batch."
func adaptiveErr(throughput, last float64) float64 {
	if last == 0 {
		return constants.AdaptiveSizingThreshold
	}
	return (throughput - last) / last
}

// align implements step 6: clamp to max_buffer, round up to the next
// block_size multiple.
func (b *Batcher) align() {
	if b.targetBatchSize > b.maxBuffer {
		b.targetBatchSize = b.maxBuffer
	}
	if b.targetBatchSize < b.blockSize {
		b.targetBatchSize = b.blockSize
	}
	if rem := b.targetBatchSize % b.blockSize; rem != 0 {
		b.targetBatchSize += b.blockSize - rem
	}
	if b.targetBatchSize > b.maxBuffer {
		// Rounding up may have overshot max_buffer; re-clamp down to
		// the nearest block_size multiple that still fits (I4).
		b.targetBatchSize = (b.maxBuffer / b.blockSize) * b.blockSize
		if b.targetBatchSize == 0 {
			b.targetBatchSize = b.blockSize
		}
	}
}

// failPending hands every handle to the notifier as a FailMessage
// carrying err, used on the Exit and fatal-write paths where no
// successful I/O occurred for these handles and they must not be
// durability-signaled as successful.
func (b *Batcher) failPending(pendingHandles []*ingest.Handle, err error) {
	if len(pendingHandles) == 0 {
		return
	}
	handles := make([]*ingest.Handle, len(pendingHandles))
	copy(handles, pendingHandles)
	b.complete.Send(notify.FailMessage(handles, err))
}

// drainRemainingAsFailed empties whatever remains in the ingest queue
// after a fatal write, failing every still-queued producer with
// WorkerDown (§7: "all currently-pending and all future producers
// observe WorkerDown"). Producers that submit after this point see the
// dead Logger state directly at the façade and never reach the queue.
func (b *Batcher) drainRemainingAsFailed(err error) {
	for {
		msg, ok := b.ingest.TryRecv()
		if !ok {
			return
		}
		if msg.Kind == ingest.KindExit {
			return
		}
		b.complete.Send(notify.FailMessage([]*ingest.Handle{msg.Handle}, err))
	}
}

func computeThroughput(bytesWritten int, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return float64(bytesWritten)
	}
	return float64(bytesWritten) / secs
}
