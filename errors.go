package flashlog

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured flashlog error with context and errno mapping.
type Error struct {
	Op    string    // Operation that failed (e.g., "OPEN", "SUBMIT", "WRITE")
	Code  ErrorCode // High-level error category
	Errno syscall.Errno // Kernel errno (0 if not applicable)
	Msg   string
	Inner error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Errno != 0 {
		return fmt.Sprintf("flashlog: op=%s errno=%d %s", e.Op, e.Errno, msg)
	}
	if e.Op != "" {
		return fmt.Sprintf("flashlog: op=%s %s", e.Op, msg)
	}
	return fmt.Sprintf("flashlog: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is provides errors.Is support based on error code.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}
	return false
}

// ErrorCode represents the high-level error taxonomy from spec.md §7.
type ErrorCode string

const (
	// CodeOpenIO covers OpenError::Io(kind): path, permission, or
	// unsupported-direct-io errors during Open.
	CodeOpenIO ErrorCode = "open: io error"

	// CodeWorkerDown covers SubmitError::WorkerDown: the ingest queue
	// send failed, or the batcher/notifier has already terminated.
	CodeWorkerDown ErrorCode = "submit: worker down"

	// CodeFatalIO covers FatalIoError: a write to the underlying file
	// failed inside the batcher. Not returned to individual producers;
	// they observe CodeWorkerDown instead (see errors.go's ErrWorkerDown).
	CodeFatalIO ErrorCode = "fatal io error"

	// CodeSignalDropped covers SignalDropped: a completion handle's
	// receiver was dropped before signaling. Tolerated, logged, never
	// returned as an error from a public call.
	CodeSignalDropped ErrorCode = "signal dropped"

	// CodeInvalidOption covers an Options field rejected at Open: zero
	// or negative after defaulting, or a max_buffer below block_size.
	CodeInvalidOption ErrorCode = "invalid option"
)

// ErrWorkerDown is the sentinel returned by SubmitAndWait once the
// batcher or notifier has terminated. Producers compare against it
// with errors.Is.
var ErrWorkerDown = &Error{Op: "SUBMIT", Code: CodeWorkerDown, Msg: string(CodeWorkerDown)}

// NewOpenError wraps a failure encountered during Open.
func NewOpenError(inner error) *Error {
	return wrapWithCode("OPEN", CodeOpenIO, inner)
}

// NewFatalIoError wraps a failure encountered by the batcher's write_all.
func NewFatalIoError(inner error) *Error {
	return wrapWithCode("WRITE", CodeFatalIO, inner)
}

// NewInvalidOptionError reports a bad Options field at Open time.
func NewInvalidOptionError(field, msg string) *Error {
	return &Error{Op: "OPEN", Code: CodeInvalidOption, Msg: fmt.Sprintf("%s: %s", field, msg)}
}

func wrapWithCode(op string, code ErrorCode, inner error) *Error {
	if inner == nil {
		return nil
	}
	if fe, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: fe.Code, Errno: fe.Errno, Msg: fe.Msg, Inner: fe.Inner}
	}
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{Op: op, Code: code, Errno: errno, Msg: errno.Error(), Inner: inner}
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}
