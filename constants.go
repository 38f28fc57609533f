package flashlog

import "github.com/flashlog/flashlog/internal/constants"

// Re-export defaults for the public API.
const (
	DefaultMaxBuffer  = constants.DefaultMaxBuffer
	DefaultAvgMsgSize = constants.DefaultAvgMsgSize
	DefaultBlockSize  = constants.DefaultBlockSize
)
