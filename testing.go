package flashlog

import (
	"sync"

	"github.com/flashlog/flashlog/internal/ioring"
)

// MockWriter is a mock implementation of ioring.Writer for testing the
// batcher and the public façade without touching real files. It tracks
// every WriteAll call verbatim so tests can assert byte-exact ordering
// (P1, P3) and supports injecting a failure at a chosen call index to
// exercise the FatalIoError path (§7).
type MockWriter struct {
	mu       sync.Mutex
	writes   [][]byte
	closed   bool
	failAt   int // -1 disables injected failures
	failErr  error
	writeErr error // returned from every call once set via FailNow
}

// NewMockWriter creates a mock writer with no injected failures.
func NewMockWriter() *MockWriter {
	return &MockWriter{failAt: -1}
}

// WriteAll implements ioring.Writer.
func (m *MockWriter) WriteAll(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writeErr != nil {
		return m.writeErr
	}
	if m.failAt >= 0 && len(m.writes) == m.failAt {
		err := m.failErr
		m.writes = append(m.writes, append([]byte(nil), data...))
		return err
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	m.writes = append(m.writes, cp)
	return nil
}

// Close implements ioring.Writer.
func (m *MockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// FailAt arranges for the call-index'th WriteAll to return err.
func (m *MockWriter) FailAt(index int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt = index
	m.failErr = err
}

// FailNow makes every subsequent WriteAll call return err immediately.
func (m *MockWriter) FailNow(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Writes returns a copy of every batch passed to WriteAll, in order.
func (m *MockWriter) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Bytes returns the concatenation of every batch written so far, which
// is exactly the file contents a real writer would have produced.
func (m *MockWriter) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, w := range m.writes {
		out = append(out, w...)
	}
	return out
}

// IsClosed reports whether Close has been called.
func (m *MockWriter) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WriteCount returns the number of WriteAll calls observed so far.
func (m *MockWriter) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

var _ ioring.Writer = (*MockWriter)(nil)
