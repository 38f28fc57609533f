package flashlog

import (
	"errors"
	"syscall"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewOpenError(syscall.EACCES)

	if err.Op != "OPEN" {
		t.Errorf("Expected Op=OPEN, got %s", err.Op)
	}
	if err.Code != CodeOpenIO {
		t.Errorf("Expected Code=CodeOpenIO, got %s", err.Code)
	}
	if err.Errno != syscall.EACCES {
		t.Errorf("Expected Errno=EACCES, got %v", err.Errno)
	}
	if !errors.Is(err, syscall.EACCES) {
		t.Error("Expected wrapped error to satisfy errors.Is for EACCES")
	}
}

func TestFatalIoError(t *testing.T) {
	err := NewFatalIoError(syscall.ENOSPC)

	if err.Code != CodeFatalIO {
		t.Errorf("Expected Code=CodeFatalIO, got %s", err.Code)
	}
	if err.Errno != syscall.ENOSPC {
		t.Errorf("Expected Errno=ENOSPC, got %v", err.Errno)
	}
}

func TestInvalidOptionError(t *testing.T) {
	err := NewInvalidOptionError("max_buffer", "must be positive")

	if err.Code != CodeInvalidOption {
		t.Errorf("Expected Code=CodeInvalidOption, got %s", err.Code)
	}
	expected := "flashlog: op=OPEN max_buffer: must be positive"
	if err.Error() != expected {
		t.Errorf("Expected error message %q, got %q", expected, err.Error())
	}
}

func TestErrWorkerDown(t *testing.T) {
	if ErrWorkerDown.Code != CodeWorkerDown {
		t.Errorf("Expected Code=CodeWorkerDown, got %s", ErrWorkerDown.Code)
	}
	if !errors.Is(ErrWorkerDown, ErrWorkerDown) {
		t.Error("Expected ErrWorkerDown to equal itself via errors.Is")
	}
}

func TestWrapPreservesStructuredError(t *testing.T) {
	inner := NewFatalIoError(syscall.EIO)
	wrapped := NewOpenError(inner)

	if wrapped.Code != CodeFatalIO {
		t.Errorf("Expected wrap to preserve inner code CodeFatalIO, got %s", wrapped.Code)
	}
	if wrapped.Op != "OPEN" {
		t.Errorf("Expected Op to be overwritten to OPEN, got %s", wrapped.Op)
	}
}

func TestIsCode(t *testing.T) {
	err := NewFatalIoError(errors.New("disk full"))

	if !IsCode(err, CodeFatalIO) {
		t.Error("Expected IsCode to match CodeFatalIO")
	}
	if IsCode(err, CodeOpenIO) {
		t.Error("Expected IsCode to not match CodeOpenIO")
	}
	if IsCode(errors.New("plain"), CodeFatalIO) {
		t.Error("Expected IsCode to return false for non-structured error")
	}
}
