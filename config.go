package flashlog

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flashlog/flashlog/internal/constants"
)

// Options configures Open (spec.md §4.1, §6). All three fields are
// optional; zero values are replaced with their defaults.
type Options struct {
	// MaxBuffer is the upper bound on target_batch_size, in bytes.
	MaxBuffer int64 `yaml:"max_buffer"`

	// AvgMsgSize is the early-cut hint: the batcher stops draining once
	// len(batch_buffer)+AvgMsgSize would exceed target_batch_size.
	AvgMsgSize int64 `yaml:"avg_msg_size"`

	// BlockSize is the alignment unit target_batch_size is rounded up to.
	BlockSize int64 `yaml:"block_size"`
}

// DefaultOptions returns the Options spec.md §4.1 specifies as defaults.
func DefaultOptions() Options {
	return Options{
		MaxBuffer:  constants.DefaultMaxBuffer,
		AvgMsgSize: constants.DefaultAvgMsgSize,
		BlockSize:  constants.DefaultBlockSize,
	}
}

// withDefaults fills any zero field with its default.
func (o Options) withDefaults() Options {
	if o.MaxBuffer == 0 {
		o.MaxBuffer = constants.DefaultMaxBuffer
	}
	if o.AvgMsgSize == 0 {
		o.AvgMsgSize = constants.DefaultAvgMsgSize
	}
	if o.BlockSize == 0 {
		o.BlockSize = constants.DefaultBlockSize
	}
	return o
}

// validate rejects negative or zero-after-defaulting fields. It does
// not enforce block-size alignment of MaxBuffer/AvgMsgSize — the
// batcher's align phase (§4.3 step 6) handles rounding at runtime.
func (o Options) validate() error {
	if o.MaxBuffer <= 0 {
		return NewInvalidOptionError("max_buffer", "must be positive")
	}
	if o.AvgMsgSize <= 0 {
		return NewInvalidOptionError("avg_msg_size", "must be positive")
	}
	if o.BlockSize <= 0 {
		return NewInvalidOptionError("block_size", "must be positive")
	}
	if o.MaxBuffer < o.BlockSize {
		return NewInvalidOptionError("max_buffer", "must be at least block_size")
	}
	return nil
}

// LoadOptionsYAML reads a YAML-encoded Options document from path. This
// is ambient plumbing only — spec.md's Non-goals exclude building a
// config-loading *system* (flags, env vars, file discovery), not a
// single deserialization helper for callers that already have a path.
func LoadOptionsYAML(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Options{}, err
	}
	return o.withDefaults(), nil
}
