package ingest

import (
	"errors"
	"testing"
)

func TestHandle_SignalDeliversErrorOnce(t *testing.T) {
	h := NewHandle()
	if ok := h.Signal(nil); !ok {
		t.Fatal("expected first Signal to succeed")
	}
	if ok := h.Signal(errors.New("too late")); ok {
		t.Error("expected second Signal to report ok=false (I2: at-most-one signal)")
	}
	if err := h.Wait(); err != nil {
		t.Errorf("Wait returned %v, want the first Signal's nil", err)
	}
}

func TestHandle_AbandonSuppressesSignal(t *testing.T) {
	h := NewHandle()
	h.Abandon()
	if ok := h.Signal(nil); ok {
		t.Error("expected Signal on an abandoned handle to report ok=false")
	}
}

func TestHandle_AbandonAfterSignalIsNoop(t *testing.T) {
	h := NewHandle()
	if ok := h.Signal(nil); !ok {
		t.Fatal("expected Signal to succeed before Abandon")
	}
	h.Abandon()
	if err := h.Wait(); err != nil {
		t.Errorf("Wait returned %v, want nil", err)
	}
}

func TestQueue_SendAndTryRecv(t *testing.T) {
	q := New(4)
	h := NewHandle()
	q.Send(WriteMessage([]byte("x"), h))

	msg, ok := q.TryRecv()
	if !ok {
		t.Fatal("expected TryRecv to succeed")
	}
	if msg.Kind != KindWrite || string(msg.Payload) != "x" {
		t.Errorf("got %+v", msg)
	}

	if _, ok := q.TryRecv(); ok {
		t.Error("expected TryRecv on an empty queue to report ok=false")
	}
}

func TestQueue_Len(t *testing.T) {
	q := New(4)
	q.Send(WriteMessage([]byte("a"), NewHandle()))
	q.Send(WriteMessage([]byte("b"), NewHandle()))
	if got := q.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestCapacity_ClampsToRange(t *testing.T) {
	if got := Capacity(100, 10, 1024, 1<<20); got != 1024 {
		t.Errorf("expected clamp to min 1024, got %d", got)
	}
	if got := Capacity(1<<40, 1, 1024, 1<<20); got != 1<<20 {
		t.Errorf("expected clamp to max 1<<20, got %d", got)
	}
	if got := Capacity(4<<20, 100, 1024, 1<<20); got != (4<<20)/100 {
		t.Errorf("expected unclamped formula result, got %d", got)
	}
}

func TestCapacity_GuardsZeroAvgMsgSize(t *testing.T) {
	got := Capacity(1000, 0, 1, 1<<20)
	if got != 1000 {
		t.Errorf("expected avg_msg_size to be treated as 1, got %d", got)
	}
}
