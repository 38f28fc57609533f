package constants

import "time"

// Default Options values (spec.md §4.1, §6).
const (
	// DefaultMaxBuffer is the upper bound on target_batch_size in bytes (512 MiB).
	DefaultMaxBuffer = 512 << 20

	// DefaultAvgMsgSize is the early-cut hint used while assembling a batch.
	DefaultAvgMsgSize = 100

	// DefaultBlockSize is the alignment unit for batch-size rounding (4 KiB).
	DefaultBlockSize = 4096

	// MinIngestQueueCapacity and MaxIngestQueueCapacity bound the
	// max_buffer/avg_msg_size derived ingest-queue capacity (see
	// SPEC_FULL.md's SUPPLEMENTED FEATURES section) so pathological
	// options can't produce a zero- or absurdly large-capacity channel.
	MinIngestQueueCapacity = 1024
	MaxIngestQueueCapacity = 1 << 20

	// CompletionQueueCapacity is the fixed bound on the completion
	// notifier's inbound FIFO (spec.md §4.5).
	CompletionQueueCapacity = 100
)

// EmptyQueuePollInterval bounds the busy-wait the batcher performs
// when the ingest queue is empty (spec.md §4.3 step 2: "a brief
// busy-wait" with "a very short, bounded interval").
const EmptyQueuePollInterval = 200 * time.Microsecond

// AdaptiveSizingThreshold is the ±10% throughput delta that triggers
// a target_batch_size adjustment (spec.md §4.4).
const AdaptiveSizingThreshold = 0.1

// GrowthFactor and ShrinkFactor are applied to target_batch_size when
// throughput improves or degrades past AdaptiveSizingThreshold.
const (
	GrowthFactor = 2.0
	ShrinkFactor = 0.75
)
